package echoapi

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/darasa-app/darasa/core"
)

func Test_Ordering_Bind(t *testing.T) {
	allowed := []string{"name", "created_at"}

	tests := []struct {
		name  string
		query string
		want  []core.DBOrdering
	}{
		{name: "no param"},
		{name: "empty param", query: "ordering="},
		{name: "ascending", query: "ordering=name", want: []core.DBOrdering{{Field: "name", Ascending: true}}},
		{name: "descending", query: "ordering=-created_at", want: []core.DBOrdering{{Field: "created_at"}}},
		{
			name:  "mixed list with spaces",
			query: "ordering=name,+-created_at",
			want:  []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "created_at"}},
		},
		{
			name:  "unlisted column dropped",
			query: "ordering=password_hash,name",
			want:  []core.DBOrdering{{Field: "name", Ascending: true}},
		},
		{name: "bare dash dropped", query: "ordering=-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			ctx := echo.New().NewContext(req, httptest.NewRecorder())

			ord := new(Ordering)
			ord.Bind(ctx, allowed...)
			if !reflect.DeepEqual(ord.Orderings, tt.want) {
				t.Errorf("Orderings = %v, want %v", ord.Orderings, tt.want)
			}
		})
	}
}
