package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"facet/internal/schema"
	"facet/internal/view"
)

// ===== VIEW HANDLERS =====
// These return the generic view models; painting them is the client's job.

// GET /api/:entity/views/table?sort=-age
// A leading '-' on the sort field means descending.
func TableViewHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := resolve(reg, c)
		if !ok {
			return
		}
		recs, err := e.Access.List(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, view.BuildTable(e.Def, recs, sortFromQuery(c.Query("sort"))))
	}
}

// GET /api/:entity/views/cards
func CardsViewHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := resolve(reg, c)
		if !ok {
			return
		}
		recs, err := e.Access.List(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, view.BuildCards(e.Def, recs))
	}
}

// POST /api/:entity/views/form
// Body: the in-progress values. Response: the form view model for those
// values plus the aggregated validation errors a submit would produce.
func FormViewHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := resolve(reg, c)
		if !ok {
			return
		}
		values := schema.Record{}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&values); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
				return
			}
		}
		fv := view.BuildForm(e.Def, values)
		relabel(reg, fv)
		c.JSON(http.StatusOK, gin.H{
			"form":   fv,
			"errors": view.Submit(e.Def, values),
		})
	}
}

func sortFromQuery(raw string) view.SortState {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return view.SortState{}
	}
	desc := false
	if strings.HasPrefix(raw, "-") {
		desc = true
		raw = strings.TrimPrefix(raw, "-")
	} else {
		raw = strings.TrimPrefix(raw, "+")
	}
	return view.SortState{Field: raw, Desc: desc}
}

// relabel swaps raw select option codes for catalog labels when an option
// catalog matching the field key exists.
func relabel(reg *Registry, fv *view.FormView) {
	for i := range fv.Fields {
		cat, ok := reg.Catalog(fv.Fields[i].Key)
		if !ok {
			continue
		}
		for j := range fv.Fields[i].Options {
			fv.Fields[i].Options[j].Label = cat.LabelFor(fv.Fields[i].Options[j].Code)
		}
	}
}
