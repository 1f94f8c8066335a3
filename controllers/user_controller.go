package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/careping/notify"
	"github.com/cppla/careping/repository"
	"github.com/cppla/careping/utils"
)

// UserController serves the caller's own profile.
type UserController struct {
	users *repository.UserRepository
}

func NewUserController(users *repository.UserRepository) *UserController {
	return &UserController{users: users}
}

func (c *UserController) Me(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	u, err := c.users.GetByID(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"id":           u.ID,
		"username":     u.Username,
		"nickname":     u.Nickname,
		"push_channel": u.PushChannel,
	})
}

// UpdatePush sets the channel and address notices are delivered to.
func (c *UserController) UpdatePush(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Channel string `json:"channel"`
		Handle  string `json:"handle"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}
	switch req.Channel {
	case "", notify.ChannelLog, notify.ChannelEmail, notify.ChannelTelegram, notify.ChannelDiscord:
	default:
		utils.Error(ctx, http.StatusBadRequest, 40051, "unsupported push channel")
		return
	}
	if err := c.users.UpdatePush(ctx.Request.Context(), userID, req.Channel, req.Handle); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"channel": req.Channel})
}
