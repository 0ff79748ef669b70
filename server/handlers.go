package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bgm-tracker/tracker/bgm"
	"github.com/bgm-tracker/tracker/constant"
	"github.com/bgm-tracker/tracker/store"
	"github.com/samber/lo"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const maxBodySize = 1 << 20

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, constant.Repository, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		s.renderToken(w, r, []byte(bgm.ExampleToken))
		return
	}

	resp, err := s.bgm.ExchangeCode(r.Context(), code)
	if errors.Is(err, bgm.ErrNotJSON) {
		logger(r).WithError(err).Warn("authorization code exchange returned non-JSON, restarting authorization")
		http.Redirect(w, r, s.bgm.AuthorizeURL(), http.StatusFound)
		return
	}
	if err != nil {
		logger(r).WithError(err).Error("authorization code exchange failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if resp.HasError() {
		writeRaw(w, http.StatusBadRequest, resp.Body)
		return
	}

	doc, err := resp.Stamp(false)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.saveToken(r, resp.UserID(), doc)
	s.renderToken(w, r, doc)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil || !gjson.ValidBytes(body) {
		http.Error(w, "400: Bad Request", http.StatusBadRequest)
		return
	}

	refreshToken := gjson.GetBytes(body, "refresh_token")
	userID := gjson.GetBytes(body, "user_id")
	if !truthy(refreshToken) || !truthy(userID) {
		http.Error(w, "400: Bad Request", http.StatusBadRequest)
		return
	}

	resp, err := s.bgm.Refresh(r.Context(), refreshToken.String())
	if err != nil {
		logger(r).WithError(err).Error("token refresh failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if resp.HasError() {
		writeRaw(w, http.StatusOK, resp.Body)
		return
	}

	doc, err := resp.Stamp(true)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.saveToken(r, resp.UserID(), doc)
	writeRaw(w, http.StatusOK, doc)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.decodeReport(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": err.Error(),
			"code":    http.StatusBadRequest,
			"status":  "error",
		})
		return
	}

	if err := s.store.InsertMissing(r.Context(), report); err != nil {
		logger(r).WithError(err).Error("store missing report")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

func (s *Server) handleMissing(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListMissing(r.Context(), s.missingLimit)
	if err != nil {
		logger(r).WithError(err).Error("list missing reports")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleQuerySubject(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	website, bangumiID := query.Get("website"), query.Get("bangumiID")
	if website == "" || bangumiID == "" || !lo.Contains(constant.Websites, website) {
		http.Error(w, "400: missing input `website` or `bangumiID`", http.StatusBadRequest)
		return
	}

	doc, err := s.store.FindSubject(r.Context(), website, bangumiID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "404: Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger(r).WithError(err).Error("find subject")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeRaw(w, http.StatusOK, doc)
}

// saveToken stores the token document. A failed write does not fail the request,
// the user still receives a valid token.
func (s *Server) saveToken(r *http.Request, userID string, doc []byte) {
	if userID == "" {
		logger(r).Warn("token response carries no user_id, not stored")
		return
	}

	if err := s.store.UpsertToken(r.Context(), userID, doc); err != nil {
		logger(r).WithError(err).WithField("user_id", userID).Error("store token")
	}
}

func (s *Server) renderToken(w http.ResponseWriter, r *http.Request, token []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, struct{ Token string }{Token: string(token)}); err != nil {
		logger(r).WithError(err).Error("render callback page")
	}
}

func (s *Server) decodeReport(body io.Reader) (store.MissingReport, error) {
	var report store.MissingReport

	var doc any
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return report, errors.New("request body is not valid JSON")
	}

	if err := s.reports.Validate(doc); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return report, formatValidationError(validationErr)
		}
		return report, err
	}

	fields := doc.(map[string]any)
	report = store.MissingReport{
		BangumiID: fmt.Sprint(fields["bangumiID"]),
		SubjectID: fields["subjectID"].(string),
		Title:     fields["title"].(string),
		Href:      fields["href"].(string),
		Website:   fields["website"].(string),
	}
	return report, nil
}

func formatValidationError(err *jsonschema.ValidationError) error {
	var messages []string

	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 && e.Message != "" {
			location := strings.TrimPrefix(e.InstanceLocation, "/")
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
		}

		for _, cause := range e.Causes {
			collect(cause)
		}
	}
	collect(err)

	if len(messages) == 0 {
		return errors.New("validation failed")
	}
	return errors.New(strings.Join(messages, "; "))
}

// truthy follows the loose truthiness clients rely on: empty strings, zero, null
// and empty objects or arrays are missing.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True:
		return true
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	default:
		return false
	}
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
