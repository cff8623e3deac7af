package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/service"
	"neurogen-exam/backend/pkg/response"
)

// TeamHandler 团队模块 HTTP 处理器
type TeamHandler struct {
	teamSvc service.TeamService
}

// NewTeamHandler 创建 TeamHandler
func NewTeamHandler(teamSvc service.TeamService) *TeamHandler {
	return &TeamHandler{teamSvc: teamSvc}
}

// ListTeams 获取团队列表（含题库、题目、考试统计）
// GET /api/teams
func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.teamSvc.List(c.Request.Context())
	if err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.OKList(c, teams, len(teams))
}

// GetTeam 获取团队详情
// GET /api/teams/:id
func (h *TeamHandler) GetTeam(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "团队")
	if !ok {
		return
	}

	team, err := h.teamSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// CreateTeam 创建团队
// POST /api/teams
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req dto.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	team, err := h.teamSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.Created(c, team)
}

// UpdateTeam 更新团队
// PUT /api/teams/:id
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "团队")
	if !ok {
		return
	}

	var req dto.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	team, err := h.teamSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// DeleteTeam 删除团队（软删除）
// DELETE /api/teams/:id
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "团队")
	if !ok {
		return
	}

	if err := h.teamSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleTeamError 统一处理团队模块业务错误
func (h *TeamHandler) handleTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTeamNotFound):
		respondCode(c, 20001, err)
	case errors.Is(err, service.ErrTeamCodeExists):
		respondCode(c, 20002, err)
	case errors.Is(err, service.ErrTeamProtected):
		respondCode(c, 20003, err)
	case errors.Is(err, service.ErrTeamHasBanks):
		respondCode(c, 20004, err)
	default:
		respondError(c, err)
	}
}
