package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wagerdeck/questline/questline/quest"
	"github.com/wagerdeck/questline/questline/services"
)

// API bundles the dependencies the HTTP handlers need.
type API struct {
	Manager *services.ProjectManager
	Ledger  *services.LedgerService
	Version string
}

func (a *API) projectService(c *fiber.Ctx) (*services.QuestService, error) {
	projectID := c.Params("project")
	service, ok := a.Manager.Project(projectID)
	if !ok {
		return nil, sendError(c, fiber.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found", map[string]string{
			"project_id": projectID,
		})
	}
	return service, nil
}

func HealthCheck(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return sendSuccess(c, fiber.Map{
			"status":   "healthy",
			"version":  api.Version,
			"projects": len(api.Manager.Projects()),
		}, "Health check successful")
	}
}

func ProjectsList(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return sendSuccess(c, api.Manager.Projects(), "Projects retrieved successfully")
	}
}

// QuestsList returns a project's quest definitions. Supports fuzzy
// title search via ?search= and ?active=true to filter on the quest
// window.
func QuestsList(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		service, err := api.projectService(c)
		if service == nil {
			return err
		}

		var quests []*quest.Definition
		if search := c.Query("search"); search != "" {
			quests = service.SearchQuests(search)
		} else if c.QueryBool("active") {
			quests = service.ActiveQuests(time.Now())
		} else {
			quests = service.Quests()
		}

		return sendSuccess(c, quests, "Quests retrieved successfully")
	}
}

// QuestCheck validates a single quest for a player.
func QuestCheck(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		service, err := api.projectService(c)
		if service == nil {
			return err
		}

		questID := c.Params("quest")
		playerID := c.Params("player")

		status, err := service.CheckQuest(c.Context(), questID, playerID)
		if err != nil {
			if errors.Is(err, quest.ErrQuestNotFound) {
				return sendError(c, fiber.StatusNotFound, "QUEST_NOT_FOUND", "Quest not found", map[string]string{
					"quest_id": questID,
				})
			}
			slog.Error("Quest check failed",
				slog.String("type", "api"),
				slog.String("quest_id", questID),
				slog.String("player_id", playerID),
				slog.Any("error", err))
			return sendError(c, fiber.StatusBadGateway, "CHECK_FAILED", "Failed to check quest", map[string]string{
				"error": err.Error(),
			})
		}

		return sendSuccess(c, status, "Quest checked successfully")
	}
}

// QuestsCheckAll validates every quest of a project for a player.
func QuestsCheckAll(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		service, err := api.projectService(c)
		if service == nil {
			return err
		}

		playerID := c.Params("player")
		statuses := service.CheckAllQuests(c.Context(), playerID)
		return sendSuccess(c, statuses, "Quests checked successfully")
	}
}

// QuestsProgress returns the ledger's cached per-quest progress
// without hitting the project's data endpoint.
func QuestsProgress(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		service, err := api.projectService(c)
		if service == nil {
			return err
		}

		playerID := c.Params("player")
		statuses, err := service.GetCachedProgress(c.Context(), playerID)
		if err != nil {
			slog.Error("Failed to load cached progress",
				slog.String("type", "api"),
				slog.String("player_id", playerID),
				slog.Any("error", err))
			return sendError(c, fiber.StatusInternalServerError, "PROGRESS_FAILED", "Failed to load progress", nil)
		}

		return sendSuccess(c, statuses, "Progress retrieved successfully")
	}
}

func PointsSummaryHandler(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID := c.Params("player")
		projectID := c.Query("project")

		summaries, err := api.Ledger.GetPointsSummary(c.Context(), playerID, projectID)
		if err != nil {
			slog.Error("Failed to load points summary",
				slog.String("type", "api"),
				slog.String("player_id", playerID),
				slog.Any("error", err))
			return sendError(c, fiber.StatusInternalServerError, "SUMMARY_FAILED", "Failed to load points summary", nil)
		}

		return sendSuccess(c, summaries, "Points summary retrieved successfully")
	}
}

type redeemRequest struct {
	ProjectID string `json:"projectId"`
	Amount    int    `json:"amount"`
	Reason    string `json:"reason"`
}

// Redeem deducts points from a player's project balance. Insufficient
// balance is a client error, not a server failure.
func Redeem(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID := c.Params("player")

		var req redeemRequest
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", map[string]string{
				"error": err.Error(),
			})
		}
		if req.ProjectID == "" || req.Amount <= 0 {
			return sendError(c, fiber.StatusBadRequest, "INVALID_REQUEST", "projectId and a positive amount are required", nil)
		}

		summary, err := api.Ledger.RedeemPoints(c.Context(), playerID, req.ProjectID, req.Amount, req.Reason)
		if err != nil {
			if errors.Is(err, quest.ErrInsufficientBalance) {
				return sendError(c, fiber.StatusConflict, "INSUFFICIENT_BALANCE", "Not enough points to redeem", map[string]string{
					"project_id": req.ProjectID,
				})
			}
			slog.Error("Failed to redeem points",
				slog.String("type", "api"),
				slog.String("player_id", playerID),
				slog.Any("error", err))
			return sendError(c, fiber.StatusInternalServerError, "REDEEM_FAILED", "Failed to redeem points", nil)
		}

		return sendSuccess(c, summary, "Points redeemed successfully")
	}
}

func Leaderboard(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		service, err := api.projectService(c)
		if service == nil {
			return err
		}

		limit := c.QueryInt("limit", 10)
		if limit < 1 || limit > 100 {
			limit = 10
		}

		entries, err := api.Ledger.GetLeaderboard(c.Context(), service.Project().ID, limit)
		if err != nil {
			slog.Error("Failed to load leaderboard",
				slog.String("type", "api"),
				slog.String("project_id", service.Project().ID),
				slog.Any("error", err))
			return sendError(c, fiber.StatusInternalServerError, "LEADERBOARD_FAILED", "Failed to load leaderboard", nil)
		}

		return sendSuccess(c, entries, "Leaderboard retrieved successfully")
	}
}

func QuestStatsHandler(api *API) fiber.Handler {
	return func(c *fiber.Ctx) error {
		service, err := api.projectService(c)
		if service == nil {
			return err
		}

		playerID := c.Params("player")
		stats, err := api.Ledger.GetUserQuestStats(c.Context(), playerID, service.Project().ID)
		if err != nil {
			slog.Error("Failed to load quest stats",
				slog.String("type", "api"),
				slog.String("player_id", playerID),
				slog.Any("error", err))
			return sendError(c, fiber.StatusInternalServerError, "STATS_FAILED", "Failed to load quest stats", nil)
		}

		return sendSuccess(c, stats, "Quest stats retrieved successfully")
	}
}

// SetupRoutes wires the quest engine API onto the fiber app.
func SetupRoutes(app *fiber.App, api *API) {
	app.Get("/health", HealthCheck(api))

	v1 := app.Group("/api/v1")
	v1.Get("/projects", ProjectsList(api))

	projects := v1.Group("/projects/:project")
	projects.Get("/quests", QuestsList(api))
	projects.Get("/players/:player/quests", QuestsProgress(api))
	projects.Post("/players/:player/quests/check", QuestsCheckAll(api))
	projects.Post("/players/:player/quests/:quest/check", QuestCheck(api))
	projects.Get("/leaderboard", Leaderboard(api))
	projects.Get("/players/:player/stats", QuestStatsHandler(api))

	players := v1.Group("/players/:player")
	players.Get("/points", PointsSummaryHandler(api))
	players.Post("/points/redeem", Redeem(api))
}
