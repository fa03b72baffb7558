package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/aggregator"
	"github.com/ternarybob/healthscope/internal/services/analysis"
	"github.com/ternarybob/healthscope/internal/services/preprocess"
)

const maxUploadBytes = 20 << 20

// Messages returned for rejected analysis requests
const (
	msgNoInput          = "Provide `text` or upload a `file` (PDF or TXT)."
	msgNotMedical       = "Upload a valid healthcare report. The uploaded file does not appear to be a medical report."
	msgImageUnsupported = "Image reports are not supported. Upload a PDF, HTML or text report."
)

// errUnsupportedMedia marks uploads that cannot be turned into text
var errUnsupportedMedia = errors.New("unsupported media type")

// AnalyzeBody is the JSON form of an analysis request
type AnalyzeBody struct {
	Text       string `json:"text"`
	Lang       string `json:"lang" validate:"lang"`
	Specialist string `json:"specialist" validate:"max=64"`
	Aggregate  *bool  `json:"aggregate"`
	RunAll     *bool  `json:"run_all"`
}

// AggregateBody is the request for POST /api/aggregate
type AggregateBody struct {
	Texts []string `json:"texts" validate:"required,min=1,dive,required"`
}

// AnalysisHandler serves report analysis, stored reports and ad-hoc aggregation
type AnalysisHandler struct {
	service    *analysis.Service
	aggregator *aggregator.Aggregator
	extractor  interfaces.PDFExtractor
	html       *preprocess.HTMLConverter
	logger     arbor.ILogger
}

func NewAnalysisHandler(
	service *analysis.Service,
	agg *aggregator.Aggregator,
	extractor interfaces.PDFExtractor,
	html *preprocess.HTMLConverter,
	logger arbor.ILogger,
) *AnalysisHandler {
	return &AnalysisHandler{
		service:    service,
		aggregator: agg,
		extractor:  extractor,
		html:       html,
		logger:     logger,
	}
}

// AnalyzeHandler handles POST /api/analyze. It accepts a multipart upload
// ("file" or "report" field, or a "text" field), a JSON body or a plain form.
// Mode flags come from the query string (lang, specialist, aggregate, run_all)
// and may be overridden by JSON body fields.
func (h *AnalysisHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	req, err := h.requestFromQuery(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body AnalyzeBody
		if !DecodeJSON(w, r, &body) {
			return
		}
		req.Text = body.Text
		if body.Lang != "" {
			req.Lang = body.Lang
		}
		if body.Specialist != "" {
			req.Specialist = body.Specialist
		}
		if body.Aggregate != nil {
			req.Aggregate = *body.Aggregate
		}
		if body.RunAll != nil {
			req.RunAll = *body.RunAll
		}

	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid multipart upload")
			return
		}
		text, source, err := h.uploadText(r)
		if errors.Is(err, errUnsupportedMedia) {
			WriteError(w, http.StatusUnsupportedMediaType, msgImageUnsupported)
			return
		}
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Text, req.Source = text, source

	default:
		req.Text = r.FormValue("text")
	}

	if err := validate.Var(req.Lang, "lang"); err != nil {
		WriteError(w, http.StatusBadRequest, "Unsupported lang: use en, hi or gu")
		return
	}

	resp, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.writeAnalyzeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

func (h *AnalysisHandler) requestFromQuery(r *http.Request) (analysis.AnalyzeRequest, error) {
	q := r.URL.Query()
	req := analysis.AnalyzeRequest{
		Lang:       q.Get("lang"),
		Specialist: q.Get("specialist"),
	}

	var err error
	if req.Aggregate, err = QueryBool(r, "aggregate", false); err != nil {
		return req, err
	}
	if req.RunAll, err = QueryBool(r, "run_all", true); err != nil {
		return req, err
	}
	return req, nil
}

// uploadText turns the uploaded file (or the text field) into report text
func (h *AnalysisHandler) uploadText(r *http.Request) (string, string, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		file, header, err = r.FormFile("report")
	}
	if errors.Is(err, http.ErrMissingFile) {
		return r.FormValue("text"), "text", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", fmt.Errorf("failed to read upload: %w", err)
	}

	name := header.Filename
	ext := strings.ToLower(filepath.Ext(name))
	contentType := header.Header.Get("Content-Type")

	switch {
	case ext == ".pdf":
		text, err := h.extractor.ExtractTextFromBytes(r.Context(), data)
		if err != nil {
			h.logger.Warn().Err(err).Str("file", name).Msg("PDF extraction failed, reading upload as text")
			return strings.ToValidUTF8(string(data), ""), name, nil
		}
		return text, name, nil

	case ext == ".png" || ext == ".jpg" || ext == ".jpeg" || strings.HasPrefix(contentType, "image/"):
		return "", name, errUnsupportedMedia

	case ext == ".html" || ext == ".htm":
		text, err := h.html.ToText(string(data))
		if err != nil {
			return "", name, err
		}
		return text, name, nil

	default:
		return strings.ToValidUTF8(string(data), ""), name, nil
	}
}

func (h *AnalysisHandler) writeAnalyzeError(w http.ResponseWriter, err error) {
	var unknown *analysis.UnknownSpecialistError
	switch {
	case errors.Is(err, analysis.ErrEmptyReport):
		WriteError(w, http.StatusBadRequest, msgNoInput)
	case errors.Is(err, analysis.ErrNotMedicalReport):
		WriteError(w, http.StatusBadRequest, msgNotMedical)
	case errors.As(err, &unknown):
		WriteError(w, http.StatusBadRequest, "Unknown specialist: "+unknown.Name)
	default:
		h.logger.Error().Err(err).Msg("Report analysis failed")
		WriteError(w, http.StatusInternalServerError, "Failed to analyze report")
	}
}

// AggregateHandler handles POST /api/aggregate: merges free-text opinions
func (h *AnalysisHandler) AggregateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body AggregateBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	inputs := make([]models.AggregateInput, 0, len(body.Texts))
	for _, text := range body.Texts {
		inputs = append(inputs, models.RawInput(text))
	}

	WriteJSON(w, http.StatusOK, h.aggregator.Aggregate(r.Context(), inputs))
}

// ListReportsHandler handles GET /api/reports
func (h *AnalysisHandler) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	reports, err := h.service.Reports(r.Context(), QueryInt(r, "limit", 50, 500))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list reports")
		WriteError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// ReportRoutes handles /api/reports/{id} (GET, DELETE) and /api/reports/{id}/pdf (GET)
func (h *AnalysisHandler) ReportRoutes(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/api/reports/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Report ID is required")
		return
	}

	if strings.HasSuffix(r.URL.Path, "/pdf") {
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}
		h.reportPDF(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getReport(w, r, id)
	case http.MethodDelete:
		h.deleteReport(w, r, id)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *AnalysisHandler) getReport(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, err, id)
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

func (h *AnalysisHandler) deleteReport(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.DeleteReport(r.Context(), id); err != nil {
		h.writeStorageError(w, err, id)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "report_id": id})
}

func (h *AnalysisHandler) reportPDF(w http.ResponseWriter, r *http.Request, id string) {
	data, err := h.service.RenderPDF(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, err, id)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *AnalysisHandler) writeStorageError(w http.ResponseWriter, err error, id string) {
	if errors.Is(err, interfaces.ErrReportNotFound) {
		WriteError(w, http.StatusNotFound, "Report not found")
		return
	}
	h.logger.Error().Err(err).Str("report_id", id).Msg("Report request failed")
	WriteError(w, http.StatusInternalServerError, "Failed to load report")
}
