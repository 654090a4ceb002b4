package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"facet/internal/data"
	"facet/internal/schema"
)

func resolve(reg *Registry, c *gin.Context) (*Entry, bool) {
	name := c.Param("entity")
	e, ok := reg.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
		return nil, false
	}
	return e, true
}

// GET /api/:entity
func ListHandler(reg *Registry) gin.HandlerFunc {
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
		c.Header("X-Total-Count", strconv.Itoa(len(recs)))
		c.JSON(http.StatusOK, recs)
	}
}

// POST /api/:entity
func CreateHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := resolve(reg, c)
		if !ok {
			return
		}
		var payload schema.Record
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		rec, err := e.Access.Create(c.Request.Context(), payload)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, rec)
	}
}

// PUT /api/:entity/:id — partial update semantics: every field optional.
func UpdateHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := resolve(reg, c)
		if !ok {
			return
		}
		var payload schema.Record
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		rec, err := e.Access.Update(c.Request.Context(), c.Param("id"), payload)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// DELETE /api/:entity/:id
func DeleteHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := resolve(reg, c)
		if !ok {
			return
		}
		if err := e.Access.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// fail maps a data-layer error onto the HTTP surface, preserving the
// transport failure distinction.
func fail(c *gin.Context, err error) {
	var ve *data.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": ve.Errors})
		return
	}
	if errors.Is(err, data.ErrMutationInFlight) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if kind, ok := schema.KindOf(err); ok {
		switch kind {
		case schema.ErrorNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		case schema.ErrorRejected:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
