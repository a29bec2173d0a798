package http

import (
	"net/http"

	"github.com/utafrali/ecommerce-admin/internal/resource"
	"github.com/utafrali/ecommerce-admin/pkg/httputil"
	"github.com/utafrali/ecommerce-admin/pkg/pagination"
)

// listParams overlays the request's query on the store's defaults.
func listParams(r *http.Request, defaults pagination.Params) pagination.Params {
	return pagination.FromValues(r.URL.Query(), defaults)
}

// stateStatus is 401 when the store refused to fetch for lack of a token.
// Other fetch failures still answer 200: the error is part of the state.
func stateStatus(authRequired bool) int {
	if authRequired {
		return http.StatusUnauthorized
	}
	return http.StatusOK
}

func writeState[T any](w http.ResponseWriter, st resource.State[T]) {
	httputil.WriteData(w, stateStatus(st.AuthRequired), st)
}
