package models

import (
	"context"
	"errors"
	"strings"

	"nodegraph/src/nodes"
)

type CommentProps struct {
	Text string `json:"text"`
}

type AvatarProps struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

var Comment = nodes.DefineModel[CommentProps]("Comment", func(b *nodes.SpecBuilder) {
	b.LinkTo(nodes.ClassRef("Person")).In().Edge(Authored).CascadeDelete(false).Named("author")
}, nodes.WithBeforeCreate(requireText))

var Avatar = nodes.DefineModel[AvatarProps]("Avatar", nil)

func requireText(_ context.Context, n *nodes.Node) error {
	text, _ := n.Get("text").(string)
	if strings.TrimSpace(text) == "" {
		return errors.New("comment text is required")
	}
	return nil
}
