package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/videocall/internal/middleware"
	"github.com/mossy-p/videocall/internal/models"
	"github.com/mossy-p/videocall/internal/users"
)

const (
	msgUsernameRequired = "username required"
	msgUserNotFound     = "user not found"
)

// Register handles POST /api/register. Logical failures (empty or taken
// name) are reported with success=false and a 200 status so browser and
// CLI clients can show the message verbatim.
func Register(store users.Store, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.AuthResponse{Message: "invalid request body"})
			return
		}

		username := strings.TrimSpace(req.Username)
		if username == "" {
			c.JSON(http.StatusOK, models.AuthResponse{Message: msgUsernameRequired})
			return
		}

		if err := store.Register(c.Request.Context(), username); err != nil {
			if errors.Is(err, users.ErrNameTaken) {
				c.JSON(http.StatusOK, models.AuthResponse{Message: users.ErrNameTaken.Error()})
				return
			}
			log.Printf("Failed to register %q: %v", username, err)
			c.JSON(http.StatusInternalServerError, models.AuthResponse{Message: "registration unavailable"})
			return
		}

		log.Printf("User registered: %s", username)
		respondWithToken(c, jwtSecret, username)
	}
}

// Login handles GET /api/login?username=
func Login(store users.Store, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := strings.TrimSpace(c.Query("username"))
		if username == "" {
			c.JSON(http.StatusOK, models.AuthResponse{Message: msgUsernameRequired})
			return
		}

		exists, err := store.Exists(c.Request.Context(), username)
		if err != nil {
			log.Printf("Failed to look up %q: %v", username, err)
			c.JSON(http.StatusInternalServerError, models.AuthResponse{Message: "login unavailable"})
			return
		}
		if !exists {
			c.JSON(http.StatusOK, models.AuthResponse{Message: msgUserNotFound})
			return
		}

		respondWithToken(c, jwtSecret, username)
	}
}

func respondWithToken(c *gin.Context, jwtSecret, username string) {
	token, err := middleware.IssueToken(jwtSecret, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.AuthResponse{Message: "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{Success: true, Token: token})
}

// OnlineUsers handles GET /api/users/online (requires JWT)
func OnlineUsers(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.OnlineUsersResponse{Users: hub.Online()})
	}
}
