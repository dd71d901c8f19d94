package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aquilax/sitetree/node"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gorilla/mux"
)

const maxBodySize = 1 << 20

type nodeForm struct {
	ParentID *string `json:"parent_id"`
	Title    *string `json:"title"`
	Slug     *string `json:"slug"`
	Body     *string `json:"body"`
	Link     *string `json:"link"`
	Status   *string `json:"status"`
	// Name is a honeypot; humans never fill it in.
	Name string `json:"name"`
}

func (f nodeForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Length(0, 200)),
		validation.Field(&f.Slug, validation.Length(0, 200)),
		validation.Field(&f.Body, validation.Length(0, 65536)),
		validation.Field(&f.Link, validation.Length(0, 2048), is.RequestURI),
		validation.Field(&f.Status, validation.In(string(node.StatusDraft), string(node.StatusPublished))),
	)
}

func (f nodeForm) payload() node.Payload {
	p := node.Payload{
		Slug: f.Slug,
		Body: f.Body,
		Link: f.Link,
	}
	if f.Title != nil {
		title := strings.TrimSpace(*f.Title)
		p.Title = &title
	}
	if f.Body != nil {
		rendered := renderText(*f.Body)
		p.Rendered = &rendered
	}
	if f.Status != nil {
		status := node.Status(*f.Status)
		p.Status = &status
	}
	return p
}

type moveForm struct {
	ParentID string `json:"parent_id"`
}

type orderForm struct {
	ParentID string        `json:"parent_id"`
	IDs      []node.NodeID `json:"ids"`
}

func (f orderForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.IDs, validation.NotNil),
	)
}

func decodeForm(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &HTTPError{Err: err, Message: "Invalid request body", Code: http.StatusBadRequest}
	}
	if validatable, ok := v.(validation.Validatable); ok {
		return validatable.Validate()
	}
	return nil
}

// siteNode loads the node named in the URL and hides nodes of other sites.
func (l *SiteTree) siteNode(r *http.Request) (*node.Node, error) {
	vars := mux.Vars(r)
	n, err := l.m.Get(r.Context(), vars["family"], vars["id"])
	if err != nil {
		return nil, err
	}
	if n.SiteID != siteFrom(r).sc.SiteID {
		return nil, &HTTPError{Err: node.ErrNotFound, Message: "Not found", Code: http.StatusNotFound}
	}
	return n, nil
}

func (l *SiteTree) listHandler(w http.ResponseWriter, r *http.Request) error {
	site := siteFrom(r)
	family := mux.Vars(r)["family"]
	query := r.URL.Query()
	includeTombstoned, _ := strconv.ParseBool(query.Get("tombstoned"))
	nl, err := l.m.ListChildren(r.Context(), family, site.sc.SiteID, query.Get("parent"), includeTombstoned)
	if err != nil {
		return err
	}
	page := getPageNumber(query.Get("page"))
	s := site.session()
	s.Set("nodes", paginate(nl, page, itemsPerPage))
	s.Set("total", len(nl))
	s.Set("pages", Pagination(PaginationConfig{
		page:  page + 1,
		ipp:   itemsPerPage,
		total: len(nl),
		url:   r.URL.String(),
		param: "page",
	}))
	return s.render(w, http.StatusOK)
}

func (l *SiteTree) getHandler(w http.ResponseWriter, r *http.Request) error {
	n, err := l.siteNode(r)
	if err != nil {
		return err
	}
	hasChildren, err := l.m.HasChildren(r.Context(), n.Family, n.ID)
	if err != nil {
		return err
	}
	s := siteFrom(r).session()
	s.Set("node", n)
	s.Set("has_children", hasChildren)
	return s.render(w, http.StatusOK)
}

func (l *SiteTree) createHandler(w http.ResponseWriter, r *http.Request) error {
	site := siteFrom(r)
	family := mux.Vars(r)["family"]
	var f nodeForm
	if err := decodeForm(r, &f); err != nil {
		return err
	}
	if inHoneypot(f.Name) {
		w.WriteHeader(http.StatusAccepted)
		return nil
	}
	client := getRemoteIP(r)
	if !l.sg.CanPost(client) {
		return &HTTPError{
			Message:    "Please wait before posting again",
			Code:       http.StatusTooManyRequests,
			RetryAfter: l.sg.RetryAfter(client),
		}
	}
	parentID := node.RootNodeID
	if f.ParentID != nil {
		parentID = *f.ParentID
	}
	n, err := l.m.Create(r.Context(), family, site.sc.SiteID, parentID, f.payload(), getActor(r))
	if err != nil {
		l.sg.Forget(client)
		return err
	}
	w.Header().Set("Location", "/api/"+family+"/nodes/"+n.ID)
	s := site.session()
	s.Set("node", n)
	return s.render(w, http.StatusCreated)
}

func (l *SiteTree) updateHandler(w http.ResponseWriter, r *http.Request) error {
	n, err := l.siteNode(r)
	if err != nil {
		return err
	}
	var f nodeForm
	if err := decodeForm(r, &f); err != nil {
		return err
	}
	if f.ParentID != nil {
		return &HTTPError{
			Err:     errors.New("parent_id cannot be changed by an update"),
			Message: "Use move to change the parent",
			Code:    http.StatusBadRequest,
		}
	}
	updated, err := l.m.Update(r.Context(), n.Family, n.ID, f.payload(), getActor(r))
	if err != nil {
		return err
	}
	s := siteFrom(r).session()
	s.Set("node", updated)
	return s.render(w, http.StatusOK)
}

func (l *SiteTree) deleteHandler(w http.ResponseWriter, r *http.Request) error {
	n, err := l.siteNode(r)
	if errors.Is(err, node.ErrNotFound) && !errors.As(err, new(*HTTPError)) {
		// already gone
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	if err != nil {
		return err
	}
	if err := l.m.Delete(r.Context(), n.Family, n.ID, getActor(r)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (l *SiteTree) moveHandler(w http.ResponseWriter, r *http.Request) error {
	n, err := l.siteNode(r)
	if err != nil {
		return err
	}
	var f moveForm
	if err := decodeForm(r, &f); err != nil {
		return err
	}
	moved, err := l.m.Reparent(r.Context(), n.Family, n.ID, f.ParentID, getActor(r))
	if err != nil {
		return err
	}
	s := siteFrom(r).session()
	s.Set("node", moved)
	return s.render(w, http.StatusOK)
}

func (l *SiteTree) publishHandler(w http.ResponseWriter, r *http.Request) error {
	n, err := l.siteNode(r)
	if err != nil {
		return err
	}
	published, err := l.m.Publish(r.Context(), n.Family, n.ID, getActor(r))
	if err != nil {
		return err
	}
	s := siteFrom(r).session()
	s.Set("node", published)
	return s.render(w, http.StatusOK)
}

func (l *SiteTree) reorderHandler(w http.ResponseWriter, r *http.Request) error {
	site := siteFrom(r)
	family := mux.Vars(r)["family"]
	var f orderForm
	if err := decodeForm(r, &f); err != nil {
		return err
	}
	if err := l.m.Reorder(r.Context(), family, site.sc.SiteID, f.ParentID, f.IDs, getActor(r)); err != nil {
		return err
	}
	s := site.session()
	s.Set("parent_id", f.ParentID)
	s.Set("ids", f.IDs)
	return s.render(w, http.StatusOK)
}

func (l *SiteTree) publishedHandler(w http.ResponseWriter, r *http.Request) error {
	site := siteFrom(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	nl, err := l.m.Published(r.Context(), mux.Vars(r)["family"], site.sc.SiteID, limit)
	if err != nil {
		return err
	}
	s := site.session()
	s.Set("nodes", nl)
	return s.render(w, http.StatusOK)
}
