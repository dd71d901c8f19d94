package node

import "fmt"

const (
	FamilyReply   = "reply"
	FamilyPage    = "page"
	FamilyContent = "content"
	FamilyMenu    = "menu"
	FamilyArticle = "article"
)

// Family describes one tree of nodes. MaxDepth 0 means unbounded; a root
// node has depth 1.
type Family struct {
	Name        string
	MaxDepth    int
	Publishable bool
	UniqueSlug  bool
}

type Families map[string]Family

// DefaultFamilies returns a fresh copy of the built in families.
func DefaultFamilies() Families {
	return Families{
		FamilyReply:   {Name: FamilyReply},
		FamilyPage:    {Name: FamilyPage, MaxDepth: 8, Publishable: true, UniqueSlug: true},
		FamilyContent: {Name: FamilyContent, MaxDepth: 8, Publishable: true, UniqueSlug: true},
		FamilyMenu:    {Name: FamilyMenu, MaxDepth: 3},
		FamilyArticle: {Name: FamilyArticle, MaxDepth: 1, Publishable: true},
	}
}

func (fs Families) Get(name string) (Family, error) {
	f, ok := fs[name]
	if !ok {
		return Family{}, fmt.Errorf("unknown family %q: %w", name, ErrInvalidArgument)
	}
	return f, nil
}

// WithDepths overrides the depth caps of the named families.
func (fs Families) WithDepths(depths map[string]int) Families {
	for name, depth := range depths {
		if f, ok := fs[name]; ok && depth >= 0 {
			f.MaxDepth = depth
			fs[name] = f
		}
	}
	return fs
}

// CheckDepth validates that a subtree of the given height hung below a
// parent at parentDepth stays within the cap.
func (f Family) CheckDepth(parentDepth, height int) error {
	if f.MaxDepth == 0 {
		return nil
	}
	if parentDepth+height > f.MaxDepth {
		return fmt.Errorf("%s tree is limited to %d levels: %w", f.Name, f.MaxDepth, ErrDepthExceeded)
	}
	return nil
}
