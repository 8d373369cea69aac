package nodes

import (
	"fmt"
	"strings"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

type Direction string

const (
	Out Direction = "OUT"
	In  Direction = "IN"
)

// TargetRef resolves the class on the other side of a relationship lazily, so two classes can
// link to each other no matter which one is defined first.
type TargetRef struct {
	name    string
	resolve func() *Class
}

// ClassRef refers to a class by its registered name.
func ClassRef(name string) TargetRef {
	return TargetRef{name: name}
}

// Ref wraps an explicit resolver.
func Ref(resolve func() *Class) TargetRef {
	return TargetRef{resolve: resolve}
}

// Resolve panics when the class was never defined; that is a programming error.
func (r TargetRef) Resolve() *Class {
	if r.resolve != nil {
		if c := r.resolve(); c != nil {
			return c
		}
		panic("nodes: relationship target resolver returned nil")
	}

	c, ok := ClassByName(r.name)
	if !ok {
		panic(fmt.Sprintf("nodes: relationship target class %q is not defined", r.name))
	}
	return c
}

// RelationshipSpec is the immutable description of one relationship of a class.
type RelationshipSpec struct {
	Name      string
	Target    TargetRef
	Direction Direction
	IsMany    bool
	EdgeClass *EdgeClass
	IsWeak    bool
}

func (s RelationshipSpec) TargetClass() *Class {
	return s.Target.Resolve()
}

// RelationName is Name, or the target class name with a lower-case first letter.
func (s RelationshipSpec) RelationName() string {
	if s.Name != "" {
		return s.Name
	}

	name := s.Target.name
	if name == "" {
		name = s.TargetClass().Name()
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// Edge returns the mediating edge class, BaseEdge when none was declared.
func (s RelationshipSpec) Edge() *EdgeClass {
	if s.EdgeClass == nil {
		return BaseEdge
	}
	return s.EdgeClass
}

// edgeFilter keeps relationships over the generic edge on edges stored as plain "Edge", so
// they never follow edges that belong to another relationship.
func (s RelationshipSpec) edgeFilter(mf domain.MetadataFilter) domain.MetadataFilter {
	if s.EdgeClass == nil {
		return mf.With(entities.FieldClassName, BaseEdge.Name())
	}
	return mf
}

// SpecBuilder collects the relationships declared inside DefineNode.
type SpecBuilder struct {
	links []*LinkBuilder
}

// LinkTo starts an OUT, ONE, strong relationship over the generic edge.
func (b *SpecBuilder) LinkTo(target TargetRef) *LinkBuilder {
	link := &LinkBuilder{spec: RelationshipSpec{
		Target:    target,
		Direction: Out,
	}}
	b.links = append(b.links, link)
	return link
}

func (b *SpecBuilder) build() []RelationshipSpec {
	specs := make([]RelationshipSpec, len(b.links))
	for i, link := range b.links {
		specs[i] = link.spec
	}
	return specs
}

type LinkBuilder struct {
	spec RelationshipSpec
}

func (l *LinkBuilder) In() *LinkBuilder {
	l.spec.Direction = In
	return l
}

func (l *LinkBuilder) Many() *LinkBuilder {
	l.spec.IsMany = true
	return l
}

func (l *LinkBuilder) Edge(edgeClass *EdgeClass) *LinkBuilder {
	l.spec.EdgeClass = edgeClass
	return l
}

// CascadeDelete(false) makes the relationship weak: deleting the owner leaves related nodes alone.
func (l *LinkBuilder) CascadeDelete(strong bool) *LinkBuilder {
	l.spec.IsWeak = !strong
	return l
}

func (l *LinkBuilder) Named(name string) *LinkBuilder {
	l.spec.Name = name
	return l
}
