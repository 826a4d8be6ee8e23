package controllers

import (
	"net/http"

	"github.com/tobiaseke/bulkroom-backend/api/responses"
	"github.com/tobiaseke/bulkroom-backend/internal/products"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
)

// WholesalerCatalog lists a wholesaler's active products, the set a retailer
// can order from.
func WholesalerCatalog(repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		wholesalerID, err := parseWholesalerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listings, err := repo.FindActiveByWholesaler(r.Context(), wholesalerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listings)
	}
}
