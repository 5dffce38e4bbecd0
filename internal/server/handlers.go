package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-registry/certification-service/internal/auth"
	"carbon-registry/certification-service/internal/certification"
	"carbon-registry/certification-service/internal/domain"
	"carbon-registry/certification-service/internal/evidence"
	"carbon-registry/certification-service/internal/ledger"
	"carbon-registry/certification-service/internal/query"
	"carbon-registry/certification-service/internal/registry"
)

type Handler struct {
	registry registry.Service
	ledger   ledger.Service
	engine   *certification.Engine
	query    *query.Service
	evidence evidence.Store
	logger   *zap.Logger
}

func NewHandler(
	reg registry.Service,
	led ledger.Service,
	engine *certification.Engine,
	qry *query.Service,
	ev evidence.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		registry: reg,
		ledger:   led,
		engine:   engine,
		query:    qry,
		evidence: ev,
		logger:   logger,
	}
}

func (h *Handler) CreateProject(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req registry.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	project, err := h.registry.CreateProject(c.Request.Context(), req, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) GetProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	project, err := h.registry.GetProject(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	counts, err := h.ledger.ProofCounts(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project":        project,
		"proof_count":    counts.Total,
		"pending_proofs": counts.Pending,
	})
}

func (h *Handler) ListProjects(c *gin.Context) {
	filter := registry.ProjectFilter{Search: c.Query("q")}
	if status := c.Query("status"); status != "" {
		s := domain.ProjectStatus(status)
		filter.Status = &s
	}
	if projectType := c.Query("type"); projectType != "" {
		t := domain.ProjectType(projectType)
		filter.ProjectType = &t
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	list, err := h.query.ListProjects(c.Request.Context(), filter, query.Page{Page: page, PerPage: perPage})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) SubmitProof(c *gin.Context) {
	if _, ok := auth.ActorFrom(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req ledger.SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.ProjectID = projectID

	proof, err := h.ledger.SubmitProof(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, proof)
}

func (h *Handler) ListProofs(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	filter := ledger.ProofFilter{}
	if status := c.Query("status"); status != "" {
		s := domain.ProofStatus(status)
		filter.Status = &s
	}

	proofs, err := h.ledger.ListProofs(c.Request.Context(), projectID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proofs)
}

func (h *Handler) ListDecisions(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	records, err := h.ledger.ListDecisions(c.Request.Context(), projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) VerifyProof(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	proofID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proof id"})
		return
	}

	if err := h.ledger.VerifyProof(c.Request.Context(), proofID, actor); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RejectProof(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	proofID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proof id"})
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.ledger.RejectProof(c.Request.Context(), proofID, actor, body.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CertifyProject(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	decision, err := h.engine.CertifyProject(c.Request.Context(), projectID, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (h *Handler) EstimateCredits(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	credits, eligibility, err := h.engine.EstimateCredits(c.Request.Context(), projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"estimated_credits": credits,
		"eligibility":       eligibility,
	})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.query.CachedStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UploadEvidence stores uploaded content and returns the opaque reference
// the caller attaches to a proof submission.
func (h *Handler) UploadEvidence(c *gin.Context) {
	if _, ok := auth.ActorFrom(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	ref := uuid.New().String()
	contentType := file.Header.Get("Content-Type")
	if err := h.evidence.Put(c.Request.Context(), ref, contentType, f); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"evidence_ref": ref})
}
