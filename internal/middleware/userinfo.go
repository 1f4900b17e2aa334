package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/happy-game/sync-player/internal/model"
)

const userInfoKey = "userInfo"

// ParseUserInfo reads the userInfo cookie into the request context. A
// missing or malformed cookie is not an error here; RequireAuth decides.
func ParseUserInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(userInfoKey)
		if err != nil {
			c.Next()
			return
		}
		var info model.UserInfo
		if err := json.Unmarshal([]byte(cookie), &info); err != nil {
			c.Next()
			return
		}
		c.Set(userInfoKey, info)
		c.Next()
	}
}

// RequireAuth rejects requests without parsed user info.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(userInfoKey); !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetUserInfoCookie stores the caller's identity for a week.
func SetUserInfoCookie(c *gin.Context, roomID, userID uint) {
	data, _ := json.Marshal(model.UserInfo{RoomID: roomID, UserID: userID})
	c.SetCookie(userInfoKey, string(data), 3600*24*7, "/", "", false, false)
}

// GetUserInfo returns the parsed identity for the current request.
func GetUserInfo(c *gin.Context) (model.UserInfo, bool) {
	value, exists := c.Get(userInfoKey)
	if !exists {
		return model.UserInfo{}, false
	}
	info, ok := value.(model.UserInfo)
	return info, ok
}
