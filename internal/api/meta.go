package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facet/internal/schema"
)

// ===== META HANDLERS =====

type metaField struct {
	Key        string   `json:"key"`
	Kind       string   `json:"kind"`
	Optional   bool     `json:"optional,omitempty"`
	Readonly   bool     `json:"readonly,omitempty"`
	SkipInForm bool     `json:"skipInForm,omitempty"`
	Enum       []string `json:"enum,omitempty"`
	Title      string   `json:"title,omitempty"`
}

type metaEntity struct {
	Entity       string         `json:"entity"`
	Fields       []metaField    `json:"fields"`
	BaseSchema   map[string]any `json:"baseSchema"`
	FormSchema   map[string]any `json:"formSchema"`
	UpdateSchema map[string]any `json:"updateSchema"`
}

func MetaListHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, reg.Names())
	}
}

// MetaEntityHandler exposes the field set plus the structural exports of the
// base/form/update schemas for external tooling.
func MetaEntityHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := resolve(reg, c)
		if !ok {
			return
		}
		def := e.Def

		fields := make([]metaField, 0, len(def.Fields()))
		for _, f := range def.Fields() {
			v := f.Validator()
			mf := metaField{
				Key:        f.Key(),
				Kind:       v.Kind().String(),
				Optional:   v.IsOptional(),
				Readonly:   f.Readonly(),
				SkipInForm: f.SkipInForm(),
				Title:      f.Meta().Title,
			}
			if v.Kind() == schema.KindEnum {
				mf.Enum = v.Enum()
			}
			fields = append(fields, mf)
		}

		c.JSON(http.StatusOK, metaEntity{
			Entity:       def.Name(),
			Fields:       fields,
			BaseSchema:   schema.Export(def.Base()),
			FormSchema:   schema.Export(def.FormSchema()),
			UpdateSchema: schema.Export(def.UpdateSchema()),
		})
	}
}
