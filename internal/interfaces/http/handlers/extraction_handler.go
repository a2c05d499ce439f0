package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/FloraTraits/internal/application/extraction"
	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/infrastructure/search/opensearch"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// ExtractionService is the part of the extraction service the API uses.
type ExtractionService interface {
	Extract(ctx context.Context, doc record.Document) (*record.Extraction, error)
	ExtractBatch(ctx context.Context, docs []record.Document) ([]extraction.BatchItem, error)
	Get(ctx context.Context, documentID string) (*record.Extraction, error)
	List(ctx context.Context, limit, offset int) ([]*record.Extraction, error)
	Search(ctx context.Context, q opensearch.RecordQuery) (*opensearch.SearchResult, error)
}

// ExtractRequest submits one document by text or by stored object key.
type ExtractRequest struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
	ObjectKey  string `json:"object_key"`
}

func (r ExtractRequest) document() record.Document {
	return record.Document{
		ID:        strings.TrimSpace(r.DocumentID),
		Source:    record.SourceHTTP,
		Text:      r.Text,
		ObjectKey: strings.TrimSpace(r.ObjectKey),
	}
}

// BatchRequest submits several documents at once.
type BatchRequest struct {
	Documents []ExtractRequest `json:"documents"`
}

// BatchResponse reports per-document outcomes in request order.
type BatchResponse struct {
	Items     []extraction.BatchItem `json:"items"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
}

// ListResponse is one page of stored extractions.
type ListResponse struct {
	Items  []*record.Extraction `json:"items"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ExtractionHandler serves /api/v1/extract and /api/v1/records.
type ExtractionHandler struct {
	svc         ExtractionService
	maxBodySize int64
	logger      logging.Logger
}

// NewExtractionHandler builds the handler. A positive maxBodySize caps
// request bodies.
func NewExtractionHandler(svc ExtractionService, maxBodySize int64, log logging.Logger) *ExtractionHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ExtractionHandler{svc: svc, maxBodySize: maxBodySize, logger: log.Named("http.extraction")}
}

func (h *ExtractionHandler) bind(c *gin.Context, dst any) bool {
	if h.maxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)
	}
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		writeError(c, errors.Newf(errors.ErrCodeExtractionTextTooLarge,
			"request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeError(c, errors.InvalidParam("malformed JSON body").WithCause(err))
	return false
}

// Extract handles POST /api/v1/extract.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if !h.bind(c, &req) {
		return
	}
	e, err := h.svc.Extract(c.Request.Context(), req.document())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ExtractBatch handles POST /api/v1/extract/batch. Per-document failures are
// reported in the items and do not change the status.
func (h *ExtractionHandler) ExtractBatch(c *gin.Context) {
	var req BatchRequest
	if !h.bind(c, &req) {
		return
	}
	docs := make([]record.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = d.document()
	}

	items, err := h.svc.ExtractBatch(c.Request.Context(), docs)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := BatchResponse{Items: items}
	for _, it := range items {
		if it.Error != "" {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	if resp.Failed > 0 {
		h.logger.Warn("batch finished with failures",
			logging.Int("succeeded", resp.Succeeded),
			logging.Int("failed", resp.Failed))
	}
	c.JSON(http.StatusOK, resp)
}

// GetRecord handles GET /api/v1/records/:id.
func (h *ExtractionHandler) GetRecord(c *gin.Context) {
	e, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ListRecords handles GET /api/v1/records.
func (h *ExtractionHandler) ListRecords(c *gin.Context) {
	limit, offset := parsePagination(c)
	items, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []*record.Extraction{}
	}
	c.JSON(http.StatusOK, ListResponse{Items: items, Limit: limit, Offset: offset})
}

// Search handles GET /api/v1/search.
func (h *ExtractionHandler) Search(c *gin.Context) {
	limit, offset := parsePagination(c)
	q := opensearch.RecordQuery{
		ScientificName: c.Query("scientific_name"),
		County:         c.Query("county"),
		StateProvince:  c.Query("state_province"),
		Limit:          limit,
		Offset:         offset,
	}
	res, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
