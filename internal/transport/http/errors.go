package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeUserRequired        = "user_id_required"
	codeInvalidID           = "invalid_id"
	codeInvalidDay          = "invalid_day"
	codeInvalidRange        = "invalid_hour_range"
	codeInvalidWindow       = "invalid_time_window"
	codeInvalidPolicy       = "invalid_policy_code"
	codeTitleRequired       = "title_required"
	codeCategoryRequired    = "category_id_required"
	codeResourceNotFound    = "resource_not_found"
	codeReservationNotFound = "reservation_not_found"
	codeSlotConflict        = "slot_conflict"
	codeCheckedIn           = "checked_in"
	codeEditNotAllowed      = "edit_not_allowed"
	codeCancelNotAllowed    = "cancel_not_allowed"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
