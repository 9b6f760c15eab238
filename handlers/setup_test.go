package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"awards-voting-backend/migrations"
	"awards-voting-backend/models"
	"awards-voting-backend/repository"
	"awards-voting-backend/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestEnvironment sets up the Gin router and an in-memory SQLite database for testing.
// The limiter may be nil.
func SetupTestEnvironment(t *testing.T, limiter *VoterRateLimiter) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// every test gets its own named in-memory database
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrations.Run(db, zap.NewNop()))
	seedDirectory(t, db)

	svc := service.NewVotingService(
		repository.NewVotingRepository(db),
		repository.NewDirectoryRepository(db),
		service.Options{Logger: zap.NewNop()},
	)

	router := gin.New()
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{"Origin", "Content-Type", HeaderUserID, HeaderUserRole}
	router.Use(cors.New(config))

	// Setup Routes (same as in routes.SetupRouter)
	admin := NewAdminHandler(svc, zap.NewNop())
	voter := NewVoterHandler(svc, zap.NewNop())
	health := NewHealthHandler(db, nil)

	api := router.Group("/api", Identity())
	{
		api.GET("/health", health.HealthCheck)
		api.GET("/status", health.SystemStatus)

		a := api.Group("/admin/voting", RequireAdmin())
		{
			a.GET("/sessions", admin.ListSessions)
			a.POST("/sessions", admin.CreateSession)
			a.GET("/sessions/:id", admin.GetSession)
			a.PUT("/sessions/:id", admin.UpdateSession)
			a.DELETE("/sessions/:id", admin.DeleteSession)
			a.POST("/sessions/:id/open", admin.OpenSession())
			a.POST("/sessions/:id/close", admin.CloseSession())
			a.POST("/sessions/:id/finalize", admin.FinalizeSession())
			a.POST("/sessions/:id/clone", admin.CloneSession)
			a.POST("/sessions/:id/seed-template", admin.SeedTemplate)
			a.GET("/sessions/:id/results", admin.Results)
			a.GET("/sessions/:id/preview", admin.Preview)
			a.GET("/templates", admin.Templates)
			a.POST("/categories", admin.CreateCategory)
			a.PUT("/categories/:id", admin.UpdateCategory)
			a.DELETE("/categories/:id", admin.DeleteCategory)
			a.POST("/questions", admin.CreateQuestion)
			a.PUT("/questions/:id", admin.UpdateQuestion)
			a.DELETE("/questions/:id", admin.DeleteQuestion)
			a.POST("/questions/:id/move", admin.MoveQuestion)
		}

		v := api.Group("/voting")
		{
			v.GET("/status", voter.Status)
			v.GET("/results/:id", voter.Results)
			v.GET("/sessions/active", RequireVoter(), voter.ActiveSession)
			v.GET("/entity-search", RequireVoter(), voter.EntitySearch)
			respond := []gin.HandlerFunc{RequireVoter()}
			if limiter != nil {
				respond = append(respond, limiter.Middleware())
			}
			v.POST("/sessions/:id/respond", append(respond, voter.Respond)...)
			v.GET("/sessions/:id/my-responses", RequireVoter(), voter.MyResponses)
			v.GET("/sessions/:id/has-voted", RequireVoter(), voter.HasVoted)
		}
	}

	return router, db
}

func seedDirectory(t *testing.T, db *gorm.DB) {
	t.Helper()
	meca := 42
	require.NoError(t, db.Create(&models.Season{ID: "season-1", Name: "2024"}).Error)
	require.NoError(t, db.Create(&[]models.Profile{
		{ID: "voter-a", FirstName: "Alice", LastName: "Voter", MembershipStatus: models.MembershipActive, Role: models.RoleMember},
		{ID: "voter-b", FirstName: "Bob", LastName: "Voter", MembershipStatus: models.MembershipActive, Role: models.RoleMember},
		{ID: "admin-1", FirstName: "Root", LastName: "Admin", MembershipStatus: models.MembershipActive, Role: models.RoleAdmin},
		{ID: "member-42", FirstName: "Ada", LastName: "Lovelace", MecaID: &meca, MembershipStatus: models.MembershipActive, Role: models.RoleMember},
	}).Error)
	require.NoError(t, db.Create(&models.Team{ID: "team-1", Name: "Bass Heads", IsActive: true}).Error)
}

type caller struct {
	id   string
	role string
}

var (
	asAdmin  = caller{id: "admin-1", role: RoleAdmin}
	asVoterA = caller{id: "voter-a", role: "member"}
	asVoterB = caller{id: "voter-b", role: "member"}
	nobody   = caller{}
)

// do sends a JSON request and returns the recorder
func do(t *testing.T, router http.Handler, who caller, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if who.id != "" {
		req.Header.Set(HeaderUserID, who.id)
	}
	if who.role != "" {
		req.Header.Set(HeaderUserRole, who.role)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// openBallot creates and opens a session with one member question "MVP"
// and one text question "Slogan" through the admin API.
func openBallot(t *testing.T, router http.Handler) (session models.VotingSession, mvp, slogan models.VotingQuestion) {
	t.Helper()
	now := time.Now().UTC()

	w := do(t, router, asAdmin, http.MethodPost, "/api/admin/voting/sessions", gin.H{
		"season_id":  "season-1",
		"title":      "2024 Awards",
		"start_date": now.Add(-time.Hour),
		"end_date":   now.Add(24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session = decode[models.VotingSession](t, w)

	w = do(t, router, asAdmin, http.MethodPost, "/api/admin/voting/categories", gin.H{
		"session_id": session.ID,
		"name":       "Awards",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	category := decode[models.VotingCategory](t, w)

	w = do(t, router, asAdmin, http.MethodPost, "/api/admin/voting/questions", gin.H{
		"category_id": category.ID,
		"title":       "MVP",
		"answer_type": models.AnswerMember,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	mvp = decode[models.VotingQuestion](t, w)

	w = do(t, router, asAdmin, http.MethodPost, "/api/admin/voting/questions", gin.H{
		"category_id":   category.ID,
		"title":         "Slogan",
		"answer_type":   models.AnswerText,
		"display_order": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	slogan = decode[models.VotingQuestion](t, w)

	w = do(t, router, asAdmin, http.MethodPost, "/api/admin/voting/sessions/"+session.ID+"/open", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session = decode[models.VotingSession](t, w)
	return session, mvp, slogan
}

func ballot(mvp, slogan models.VotingQuestion, member, text string) gin.H {
	return gin.H{"responses": []gin.H{
		{"question_id": mvp.ID, "selected_member_id": member},
		{"question_id": slogan.ID, "text_answer": text},
	}}
}
