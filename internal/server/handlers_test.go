package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-registry/certification-service/internal/auth"
	"carbon-registry/certification-service/internal/certification"
	"carbon-registry/certification-service/internal/domain"
	"carbon-registry/certification-service/internal/evidence"
	"carbon-registry/certification-service/internal/ledger"
	"carbon-registry/certification-service/internal/query"
	"carbon-registry/certification-service/internal/registry"
)

const testSecret = "test-secret"

type testAPI struct {
	router   *gin.Engine
	registry registry.Service
	ledger   ledger.Service
	evidence evidence.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	projectStore := registry.NewMemoryStore()
	proofStore := ledger.NewMemoryStore()
	ev := evidence.NewMemoryStore()

	reg := registry.NewService(projectStore, logger)
	led := ledger.NewService(proofStore, reg, ev, logger)
	engine := certification.NewEngine(reg, led, certification.Config{}, logger)
	qry := query.NewService(projectStore, proofStore, logger)

	handler := NewHandler(reg, led, engine, qry, ev, logger)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api, testSecret)

	return &testAPI{router: router, registry: reg, ledger: led, evidence: ev}
}

func token(t *testing.T, actor domain.Actor) string {
	t.Helper()
	tok, err := auth.SignToken(testSecret, actor)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestCreateProjectEndpoint(t *testing.T) {
	api := newTestAPI(t)
	ownerToken := token(t, domain.Actor{ID: "owner-1", Role: domain.RoleOwner})

	w := api.do(t, http.MethodPost, "/api/v1/projects", ownerToken, gin.H{
		"name":          "Reforestation X",
		"project_type":  "reforestation",
		"location":      "Brazil",
		"area_hectares": 100,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var project domain.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	assert.Equal(t, domain.StatusRegistered, project.Status)
	assert.Equal(t, "owner-1", project.OwnerID)
}

func TestCreateProjectRequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/projects", "", gin.H{"name": "x"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateProjectValidationStatus(t *testing.T) {
	api := newTestAPI(t)
	ownerToken := token(t, domain.Actor{ID: "owner-1", Role: domain.RoleOwner})

	w := api.do(t, http.MethodPost, "/api/v1/projects", ownerToken, gin.H{
		"name":          "Bad",
		"project_type":  "volcano",
		"location":      "Iceland",
		"area_hectares": 10,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "project_type")
}

func TestGetProjectNotFound(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/projects/"+uuid.NewString(), "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFullCertificationFlow(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	ownerToken := token(t, domain.Actor{ID: "owner-1", Role: domain.RoleOwner})
	verifierToken := token(t, domain.Actor{ID: "verifier-1", Role: domain.RoleVerifier})

	// Register.
	w := api.do(t, http.MethodPost, "/api/v1/projects", ownerToken, gin.H{
		"name":          "Reforestation X",
		"project_type":  "reforestation",
		"location":      "Brazil",
		"area_hectares": 100,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var project domain.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))

	// Evidence is uploaded out of band; seed the store directly.
	ref := "evidence-1"
	require.NoError(t, api.evidence.Put(ctx, ref, "image/png", strings.NewReader("fake content")))

	// Submit a proof.
	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%s/proofs", project.ID), ownerToken, gin.H{
		"title":         "Initial planting",
		"description":   "500 native trees planted",
		"evidence_refs": []string{ref},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var proof domain.Proof
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proof))

	// Verify it.
	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/proofs/%s/verify", proof.ID), verifierToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Re-verifying is a conflict, not a server error.
	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/proofs/%s/verify", proof.ID), verifierToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Certify.
	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%s/certify", project.ID), verifierToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var decision domain.CertificationDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, int64(450), decision.CreditsIssued)

	// A second certification attempt conflicts.
	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%s/certify", project.ID), verifierToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The certified project shows up in the filtered listing.
	w = api.do(t, http.MethodGet, "/api/v1/projects?status=Certified", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list query.ProjectList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Projects, 1)
	assert.Equal(t, project.ID, list.Projects[0].ID)
}

func TestCertifyIneligibleStatus(t *testing.T) {
	api := newTestAPI(t)
	ownerToken := token(t, domain.Actor{ID: "owner-1", Role: domain.RoleOwner})
	verifierToken := token(t, domain.Actor{ID: "verifier-1", Role: domain.RoleVerifier})

	w := api.do(t, http.MethodPost, "/api/v1/projects", ownerToken, gin.H{
		"name":          "Empty Project",
		"project_type":  "conservation",
		"location":      "Kenya",
		"area_hectares": 20,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var project domain.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))

	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%s/certify", project.ID), verifierToken, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "no verified proofs")
}

func TestCertifyForbiddenForOwner(t *testing.T) {
	api := newTestAPI(t)
	ownerToken := token(t, domain.Actor{ID: "owner-1", Role: domain.RoleOwner})

	w := api.do(t, http.MethodPost, "/api/v1/projects", ownerToken, gin.H{
		"name":          "Project",
		"project_type":  "conservation",
		"location":      "Kenya",
		"area_hectares": 20,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var project domain.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))

	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%s/certify", project.ID), ownerToken, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/stats", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.TotalProjects)
}
