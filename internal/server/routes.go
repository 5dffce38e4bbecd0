package server

import (
	"github.com/gin-gonic/gin"

	"carbon-registry/certification-service/internal/auth"
)

// RegisterRoutes wires the API. Reads are public (the explorer lists
// certified projects without a session); every mutation requires a bearer
// token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, jwtSecret string) {
	authed := auth.Middleware(jwtSecret)

	projects := rg.Group("/projects")
	{
		projects.POST("", authed, h.CreateProject)
		projects.GET("", h.ListProjects)
		projects.GET("/:id", h.GetProject)
		projects.POST("/:id/proofs", authed, h.SubmitProof)
		projects.GET("/:id/proofs", h.ListProofs)
		projects.GET("/:id/decisions", h.ListDecisions)
		projects.GET("/:id/estimate", h.EstimateCredits)
		projects.POST("/:id/certify", authed, h.CertifyProject)
	}

	proofs := rg.Group("/proofs")
	{
		proofs.POST("/:id/verify", authed, h.VerifyProof)
		proofs.POST("/:id/reject", authed, h.RejectProof)
	}

	rg.POST("/evidence", authed, h.UploadEvidence)
	rg.GET("/stats", h.Stats)
}
