package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/data"
	"facet/internal/demo"
	"facet/internal/memstore"
	"facet/internal/reference"
	"facet/internal/schema"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	def, err := demo.Users(store, schema.CacheConfig{StaleTime: time.Minute})
	require.NoError(t, err)
	require.NoError(t, demo.Seed(context.Background(), store))

	cache := data.NewCache(def.Cache())
	t.Cleanup(cache.Close)
	access := data.NewAccess(def, cache, data.Options{RetryBackoff: time.Millisecond})

	reg := NewRegistry(map[string]reference.Catalog{
		"role": {Name: "role", Items: []reference.Option{
			{Code: "admin", Label: "Administrator"},
		}},
	})
	reg.Register(def, access)
	return NewRouter(reg)
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestListEndpoint(t *testing.T) {
	r := testRouter(t)

	w := do(t, r, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4", w.Header().Get("X-Total-Count"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var recs []schema.Record
	decode(t, w, &recs)
	require.Len(t, recs, 4)
	assert.Equal(t, "Ada Lovelace", recs[0]["name"])
}

func TestListUnknownEntity(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/api/ghosts", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateEndpoint(t *testing.T) {
	r := testRouter(t)

	w := do(t, r, http.MethodPost, "/api/users", schema.Record{
		"name": "Mary Shelley", "email": "mary@example.com", "role": "user",
		"age": 27, "status": "active",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var rec schema.Record
	decode(t, w, &rec)
	assert.NotEmpty(t, rec["id"])
	assert.Equal(t, float64(1), rec["version"])

	w = do(t, r, http.MethodGet, "/api/users", nil)
	assert.Equal(t, "5", w.Header().Get("X-Total-Count"), "the cached list is refreshed")
}

func TestCreateValidationErrors(t *testing.T) {
	r := testRouter(t)

	w := do(t, r, http.MethodPost, "/api/users", schema.Record{
		"name": "X", "email": "not-an-email", "role": "admin",
		"age": 20, "status": "active",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Errors []schema.FieldError `json:"errors"`
	}
	decode(t, w, &body)
	fields := map[string]bool{}
	for _, e := range body.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["email"])
	assert.True(t, fields["age"], "cross-field rules report alongside structural errors")
}

func TestCreateInvalidJSON(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString("{nope"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateEndpoint(t *testing.T) {
	r := testRouter(t)

	var recs []schema.Record
	decode(t, do(t, r, http.MethodGet, "/api/users", nil), &recs)
	id := recs[0]["id"].(string)

	w := do(t, r, http.MethodPut, "/api/users/"+id, schema.Record{"age": 37})
	require.Equal(t, http.StatusOK, w.Code)

	var rec schema.Record
	decode(t, w, &rec)
	assert.Equal(t, float64(37), rec["age"])
	assert.Equal(t, float64(2), rec["version"])
}

func TestUpdateReadonlyField(t *testing.T) {
	r := testRouter(t)

	var recs []schema.Record
	decode(t, do(t, r, http.MethodGet, "/api/users", nil), &recs)
	id := recs[0]["id"].(string)

	w := do(t, r, http.MethodPut, "/api/users/"+id, schema.Record{"createdAt": "2030-01-01"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Errors []schema.FieldError `json:"errors"`
	}
	decode(t, w, &body)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, schema.CodeReadOnly, body.Errors[0].Code)
}

func TestUpdateMissingRecord(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodPut, "/api/users/nope", schema.Record{"age": 30})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	r := testRouter(t)

	var recs []schema.Record
	decode(t, do(t, r, http.MethodGet, "/api/users", nil), &recs)
	id := recs[0]["id"].(string)

	w := do(t, r, http.MethodDelete, "/api/users/"+id, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/users", nil)
	assert.Equal(t, "3", w.Header().Get("X-Total-Count"))

	w = do(t, r, http.MethodDelete, "/api/users/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "a soft-deleted record is gone from the API")
}

func TestMetaEndpoints(t *testing.T) {
	r := testRouter(t)

	var names []string
	decode(t, do(t, r, http.MethodGet, "/api/meta", nil), &names)
	assert.Equal(t, []string{"users"}, names)

	w := do(t, r, http.MethodGet, "/api/meta/users", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var meta struct {
		Entity     string         `json:"entity"`
		Fields     []metaField    `json:"fields"`
		FormSchema map[string]any `json:"formSchema"`
	}
	decode(t, w, &meta)
	assert.Equal(t, "users", meta.Entity)
	require.NotEmpty(t, meta.Fields)
	assert.Equal(t, "name", meta.Fields[0].Key)
	assert.Equal(t, "object", meta.FormSchema["type"])
}

func TestTableViewEndpoint(t *testing.T) {
	r := testRouter(t)

	w := do(t, r, http.MethodGet, "/api/users/views/table?sort=-age", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tv struct {
		Columns []struct {
			Key string `json:"key"`
		} `json:"columns"`
		Rows []struct {
			Cells []struct {
				Key   string `json:"key"`
				Value any    `json:"value"`
				Empty bool   `json:"empty"`
			} `json:"cells"`
		} `json:"rows"`
		Sort struct {
			Field string `json:"field"`
			Desc  bool   `json:"desc"`
		} `json:"sort"`
	}
	decode(t, w, &tv)

	assert.Equal(t, "age", tv.Sort.Field)
	assert.True(t, tv.Sort.Desc)
	require.Len(t, tv.Rows, 4)
	assert.Equal(t, float64(45), tv.Rows[0].Cells[3].Value, "descending age puts Grace first")

	// Alan (age 20) renders an explicit empty phone cell
	last := tv.Rows[3]
	for _, cell := range last.Cells {
		if cell.Key == "phoneNumber" {
			assert.True(t, cell.Empty)
		}
	}
}

func TestCardsViewEndpoint(t *testing.T) {
	r := testRouter(t)

	w := do(t, r, http.MethodGet, "/api/users/views/cards", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var gv struct {
		Cards []struct {
			Header   []struct{ Key string } `json:"header"`
			Expanded []struct{ Key string } `json:"expanded"`
		} `json:"cards"`
	}
	decode(t, w, &gv)
	require.Len(t, gv.Cards, 4)
	assert.Equal(t, "name", gv.Cards[0].Header[0].Key)
	assert.Equal(t, "role", gv.Cards[0].Expanded[0].Key)
}

func TestFormViewEndpoint(t *testing.T) {
	r := testRouter(t)

	w := do(t, r, http.MethodPost, "/api/users/views/form", schema.Record{
		"name": "Ada", "email": "ada@example.com", "role": "admin",
		"age": 24, "status": "active",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Form struct {
			Fields []struct {
				Key     string `json:"key"`
				Options []struct {
					Code  string `json:"code"`
					Label string `json:"label"`
				} `json:"options"`
			} `json:"fields"`
		} `json:"form"`
		Errors []schema.FieldError `json:"errors"`
	}
	decode(t, w, &body)

	var roleLabels []string
	for _, f := range body.Form.Fields {
		if f.Key == "role" {
			for _, o := range f.Options {
				roleLabels = append(roleLabels, o.Label)
			}
		}
	}
	assert.Contains(t, roleLabels, "Administrator", "catalog labels replace raw codes")

	fields := map[string]bool{}
	for _, e := range body.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["age"], "submit errors ride along with the form model")
	assert.True(t, fields["email"])
}
