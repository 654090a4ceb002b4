// Package demo carries the one concrete entity the server ships with. It is
// also the worked example for the definition builder: every field is declared
// once and fans out into the form, table, and card views.
package demo

import (
	"context"
	"strings"

	"facet/internal/schema"
)

// Users defines the demo entity. phoneNumber only shows for active users of
// drinking^W calling age; pendingReason only shows (and is only demanded)
// while the status is pending.
func Users(transport schema.Transport, cache schema.CacheConfig) (*schema.Definition, error) {
	return schema.DefineEntity(schema.Config{
		Name:      "users",
		Transport: transport,
		Cache:     cache,
		Validation: []schema.Rule{
			{
				Message: "admin must be at least 25",
				Path:    []string{"age"},
				Check: func(v schema.Record) bool {
					if v["role"] != "admin" {
						return true
					}
					age, ok := asNumber(v["age"])
					return !ok || age >= 25
				},
			},
			{
				Message: "admin email must use the company domain",
				Path:    []string{"email"},
				Check: func(v schema.Record) bool {
					if v["role"] != "admin" {
						return true
					}
					email, _ := v["email"].(string)
					return strings.HasSuffix(email, "@company.com")
				},
			},
			{
				Message: "pending reason is required while status is pending",
				Path:    []string{"pendingReason"},
				Check: func(v schema.Record) bool {
					if v["status"] != "pending" {
						return true
					}
					reason, _ := v["pendingReason"].(string)
					return strings.TrimSpace(reason) != ""
				},
			},
		},
		Fields: []*schema.FieldBuilder{
			schema.DefineField("name", schema.String().Min(2)).
				Form(schema.FormOptions{Label: "Name", Placeholder: "Full name"}).
				Table(schema.TableOptions{Label: "Name", Sortable: true, Width: 200}).
				Card(schema.CardOptions{Label: "Name", Position: schema.PositionHeader, Size: "lg", Style: "primary"}).
				Meta(schema.Meta{Title: "Display name", Examples: []any{"Ada Lovelace"}}),

			schema.DefineField("email", schema.String().Email()).
				Form(schema.FormOptions{Label: "Email", InputType: "email", Placeholder: "user@example.com"}).
				Table(schema.TableOptions{Label: "Email", Sortable: true, DisplayType: "email"}).
				Card(schema.CardOptions{Label: "Email", Position: schema.PositionBody, Size: "sm", Style: "secondary", Icon: "mail"}),

			schema.DefineField("role", schema.Enum("admin", "user", "guest")).
				Form(schema.FormOptions{Label: "Role"}).
				Table(schema.TableOptions{Label: "Role", Width: 100}).
				Card(schema.CardOptions{Label: "Role", Position: schema.PositionBody, Size: "sm", Style: "accent", HideFromPreview: true}),

			schema.DefineField("age", schema.Number().Min(0).Max(150)).
				Form(schema.FormOptions{Label: "Age", InputType: "number"}).
				Table(schema.TableOptions{Label: "Age", Sortable: true, Align: "right", Width: 80}),

			schema.DefineField("status", schema.Enum("active", "pending", "inactive")).
				Form(schema.FormOptions{Label: "Status"}).
				Table(schema.TableOptions{Label: "Status", Sortable: true}).
				Card(schema.CardOptions{Label: "Status", Position: schema.PositionFooter, Size: "sm", Style: "muted"}),

			schema.DefineField("phoneNumber", schema.String().Optional().Min(7)).
				ShowWhen(schema.When("status", func(v any, all schema.Record) bool {
					if v != "active" {
						return false
					}
					age, ok := asNumber(all["age"])
					return ok && age >= 21
				})).
				Form(schema.FormOptions{Label: "Phone", InputType: "text", Placeholder: "+1 555 0100"}).
				Table(schema.TableOptions{Label: "Phone"}).
				Card(schema.CardOptions{Label: "Phone", Position: schema.PositionBody, Size: "sm", Style: "secondary", Icon: "phone"}),

			schema.DefineField("pendingReason", schema.String().Optional()).
				ShowWhen(schema.Equals("status", "pending")).
				Form(schema.FormOptions{Label: "Pending reason", InputType: "textarea", Rows: 3}),

			schema.DefineField("createdAt", schema.Date().Optional()).
				Query(schema.QueryOptions{Readonly: true}).
				Table(schema.TableOptions{Label: "Joined", Sortable: true, DisplayType: "date"}).
				Card(schema.CardOptions{Label: "Joined", Position: schema.PositionFooter, Size: "sm", Style: "muted"}),
		},
	})
}

// Seed pushes a few records through the transport so the demo views have
// something to show.
func Seed(ctx context.Context, t schema.Transport) error {
	records := []schema.Record{
		{"name": "Ada Lovelace", "email": "ada@company.com", "role": "admin", "age": float64(36),
			"status": "active", "phoneNumber": "+1 555 0100", "createdAt": "2024-01-15"},
		{"name": "Grace Hopper", "email": "grace@company.com", "role": "admin", "age": float64(45),
			"status": "active", "phoneNumber": "+1 555 0101", "createdAt": "2024-02-03"},
		{"name": "Joan Clarke", "email": "joan@example.com", "role": "user", "age": float64(24),
			"status": "pending", "pendingReason": "awaiting docs", "createdAt": "2024-03-21"},
		{"name": "Alan Turing", "email": "alan@example.com", "role": "guest", "age": float64(20),
			"status": "active", "createdAt": "2024-04-02"},
	}
	for _, r := range records {
		if _, err := t.Create(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
