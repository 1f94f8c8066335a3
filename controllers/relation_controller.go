package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/careping/relation"
	"github.com/cppla/careping/utils"
)

// RelationController exposes pairing and unbinding.
type RelationController struct {
	svc *relation.Service
}

func NewRelationController(svc *relation.Service) *RelationController {
	return &RelationController{svc: svc}
}

func (c *RelationController) List(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	rels, err := c.svc.List(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, rels)
}

// Invite asks partner_id to pair with the caller.
func (c *RelationController) Invite(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req struct {
		PartnerID uint   `json:"partner_id" binding:"required"`
		Name      string `json:"name"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	rel, err := c.svc.Invite(ctx.Request.Context(), userID, req.PartnerID, utils.Sanitize(req.Name))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "created", rel)
}

func (c *RelationController) Accept(ctx *gin.Context) {
	c.act(ctx, c.svc.Accept)
}

func (c *RelationController) Reject(ctx *gin.Context) {
	c.act(ctx, c.svc.Reject)
}

func (c *RelationController) WithdrawUnbind(ctx *gin.Context) {
	c.act(ctx, c.svc.WithdrawUnbind)
}

// InitiateUnbind starts the delayed unbind; the optional reason is kept in history.
func (c *RelationController) InitiateUnbind(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	relID, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40041, "invalid request payload")
			return
		}
	}
	if err := c.svc.InitiateUnbind(ctx.Request.Context(), relID, userID, utils.Sanitize(req.Reason)); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": relID})
}

func (c *RelationController) act(ctx *gin.Context, fn func(ctx context.Context, relationID, operatorID uint) error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	relID, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	if err := fn(ctx.Request.Context(), relID, userID); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": relID})
}
