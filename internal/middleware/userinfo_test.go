package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ParseUserInfo())
	r.GET("/public", func(c *gin.Context) {
		info, ok := GetUserInfo(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "roomId": info.RoomID})
	})
	protected := r.Group("", RequireAuth())
	protected.GET("/private", func(c *gin.Context) {
		info, _ := GetUserInfo(c)
		c.JSON(http.StatusOK, info)
	})
	r.GET("/login", func(c *gin.Context) {
		SetUserInfoCookie(c, 1, 2)
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireAuthRejectsWithoutCookie(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCookieRoundTrip(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"roomId":1,"userId":2}`, w.Body.String())
}

func TestMalformedCookieIsNotFatal(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.AddCookie(&http.Cookie{Name: "userInfo", Value: url.QueryEscape("not json")})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":false,"roomId":0}`, w.Body.String())
}
