package api

import (
	"net/http"

	"TrackerSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SyncHandler 手动触发全量批次同步
type SyncHandler struct {
	scheduler *service.Scheduler
	logger    *logrus.Logger
}

func NewSyncHandler(scheduler *service.Scheduler, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{scheduler: scheduler, logger: logger}
}

// SyncStudents 对全量名册跑一批同步（与定时任务共用批次逻辑，批次在跑则直接跳过）
// @Summary 手动触发全量同步
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /sync/students [post]
func (h *SyncHandler) SyncStudents(c *gin.Context) {
	if err := h.scheduler.RunBatch(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("手动批量同步失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "批量同步已完成"})
}
