package api

import (
	"net/http"

	"github.com/banshee-data/eim/internal/httputil"
	"github.com/banshee-data/eim/internal/units"
)

type convertRequest struct {
	Conversion string `json:"conversion"`
	Values     any    `json:"values"`
}

type convertResponse struct {
	Conversion string `json:"conversion"`
	// Values mirrors the request shape. Non-finite results are null.
	Values any `json:"values"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Conversion == "" {
		httputil.BadRequest(w, "conversion is required, valid conversions are "+units.GetValidNamesString())
		return
	}

	out, err := units.ApplyNamed(req.Conversion, req.Values)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, convertResponse{
		Conversion: req.Conversion,
		Values:     httputil.Finite(out),
	})
}
