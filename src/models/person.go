package models

import (
	"nodegraph/src/nodes"
)

type PersonProps struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Title string `json:"title,omitempty"`
}

// MemberOf links a Person to an Org. The "role" prop carries the membership role.
var MemberOf = nodes.DefineEdge("MemberOf")

// Authored links a Person to the comments they wrote.
var Authored = nodes.DefineEdge("Authored")

var Person = nodes.DefineModel[PersonProps]("Person", func(b *nodes.SpecBuilder) {
	// leaving a company does not delete it
	b.LinkTo(nodes.ClassRef("Org")).Many().Edge(MemberOf).CascadeDelete(false).Named("orgs")
	b.LinkTo(nodes.ClassRef("Comment")).Many().Edge(Authored).Named("comments")
	b.LinkTo(nodes.ClassRef("Avatar")).Named("avatar")
})
