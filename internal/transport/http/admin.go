package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/chenbitou/RoomAppt/internal/app"
	"github.com/chenbitou/RoomAppt/internal/domain"
)

// AdminCatalogService is the minimal interface needed for admin resource
// endpoints.
type AdminCatalogService interface {
	CreateResource(ctx context.Context, in app.CreateResourceInput) (domain.Resource, error)
	ListResources(ctx context.Context, categoryID string) ([]domain.Resource, error)
}

// AdminWindowService is the minimal interface needed to configure day
// windows.
type AdminWindowService interface {
	SetDayWindows(ctx context.Context, resourceID, day string, windows []domain.TimeWindow) error
}

// HandleAdminResources returns an HTTP handler for resource creation and
// listing.
func HandleAdminResources(svc AdminCatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			categoryID := r.URL.Query().Get("category_id")
			if categoryID == "" {
				writeError(w, http.StatusBadRequest, codeCategoryRequired, domain.ErrCategoryRequired.Error())
				return
			}
			resources, err := svc.ListResources(r.Context(), categoryID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]resourceResponse, 0, len(resources))
			for _, res := range resources {
				resp = append(resp, newResourceResponse(res))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			var req createResourceRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.Title == "" {
				writeError(w, http.StatusBadRequest, codeTitleRequired, domain.ErrTitleRequired.Error())
				return
			}
			if req.CategoryID == "" {
				writeError(w, http.StatusBadRequest, codeCategoryRequired, domain.ErrCategoryRequired.Error())
				return
			}

			res, err := svc.CreateResource(r.Context(), app.CreateResourceInput{
				Title:        req.Title,
				CategoryID:   req.CategoryID,
				CategoryName: req.CategoryName,
				DisplayOrder: req.DisplayOrder,
				EditPolicy:   req.EditPolicy,
				CancelPolicy: req.CancelPolicy,
			})
			if err != nil {
				switch err {
				case domain.ErrTitleRequired:
					writeError(w, http.StatusBadRequest, codeTitleRequired, err.Error())
				case domain.ErrCategoryRequired:
					writeError(w, http.StatusBadRequest, codeCategoryRequired, err.Error())
				case domain.ErrInvalidPolicy:
					writeError(w, http.StatusBadRequest, codeInvalidPolicy, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(newResourceResponse(res))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleAdminDayWindows returns an HTTP handler that replaces the configured
// windows of one resource-day.
func HandleAdminDayWindows(svc AdminWindowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, day, ok := parseAdminDayWindowsPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req setDayWindowsRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		windows := make([]domain.TimeWindow, 0, len(req.Windows))
		for _, win := range req.Windows {
			windows = append(windows, domain.TimeWindow{
				StartHour: win.StartHour,
				EndHour:   win.EndHour,
				Price:     win.Price,
			})
		}

		if err := svc.SetDayWindows(r.Context(), resourceID, day, windows); err != nil {
			switch err {
			case domain.ErrInvalidDay:
				writeError(w, http.StatusBadRequest, codeInvalidDay, err.Error())
			case domain.ErrInvalidWindow:
				writeError(w, http.StatusBadRequest, codeInvalidWindow, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrResourceNotFound:
				writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(setDayWindowsResponse{
			ResourceID: resourceID,
			Day:        day,
			Windows:    req.Windows,
		})
	}
}

func parseAdminDayWindowsPath(path string) (resourceID, day string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 5 {
		return "", "", false
	}
	if parts[0] != "admin" || parts[1] != "resources" || parts[3] != "days" {
		return "", "", false
	}
	if parts[2] == "" || parts[4] == "" {
		return "", "", false
	}
	return parts[2], parts[4], true
}

type createResourceRequest struct {
	Title        string `json:"title"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
	DisplayOrder int    `json:"display_order,omitempty"`
	EditPolicy   int    `json:"edit_policy,omitempty"`
	CancelPolicy int    `json:"cancel_policy,omitempty"`
}

type resourceResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Status       string    `json:"status"`
	DisplayOrder int       `json:"display_order"`
	EditPolicy   int       `json:"edit_policy"`
	CancelPolicy int       `json:"cancel_policy"`
	ActiveCount  int       `json:"active_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func newResourceResponse(res domain.Resource) resourceResponse {
	return resourceResponse{
		ID:           res.ID,
		Title:        res.Title,
		CategoryID:   res.CategoryID,
		CategoryName: res.CategoryName,
		Status:       string(res.Status),
		DisplayOrder: res.DisplayOrder,
		EditPolicy:   res.EditPolicy,
		CancelPolicy: res.CancelPolicy,
		ActiveCount:  res.ActiveCount,
		CreatedAt:    res.CreatedAt,
	}
}

type windowPayload struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
	Price     int `json:"price"`
}

type setDayWindowsRequest struct {
	Windows []windowPayload `json:"windows"`
}

type setDayWindowsResponse struct {
	ResourceID string          `json:"resource_id"`
	Day        string          `json:"day"`
	Windows    []windowPayload `json:"windows"`
}
