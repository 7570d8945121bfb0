package api

import (
	"errors"
	"net/http"
	"strconv"

	"TrackerSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CodeforcesHandler 分析数据读取与手动刷新接口
type CodeforcesHandler struct {
	studentService *service.StudentService
	logger         *logrus.Logger
}

func NewCodeforcesHandler(studentService *service.StudentService, logger *logrus.Logger) *CodeforcesHandler {
	return &CodeforcesHandler{studentService: studentService, logger: logger}
}

// RefreshData 手动强制刷新单个学生的Codeforces数据
// @Summary 强制刷新Codeforces数据
// @Param uuid path string true "学生UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/students/{uuid}/refresh-cf [post]
func (h *CodeforcesHandler) RefreshData(c *gin.Context) {
	record, err := h.studentService.RefreshData(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
			return
		}
		// 同步失败的具体原因（句柄不存在/限流/落库失败）原样返回给调用方展示
		h.logger.WithError(err).Error("手动刷新Codeforces数据失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}

// GetContestHistory 比赛历史（按天数裁剪，时间倒序）
// @Summary 获取比赛历史
// @Param uuid path string true "学生UUID"
// @Param days query int false "最近N天（默认365）"
// @Router /api/students/{uuid}/contests [get]
func (h *CodeforcesHandler) GetContestHistory(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "365"))
	history, err := h.studentService.GetContestHistory(c.Request.Context(), c.Param("uuid"), days)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(history),
		"data":    history,
	})
}

// GetProblemStats 做题统计与提交热力图
// @Summary 获取做题统计
// @Param uuid path string true "学生UUID"
// @Param days query int false "热力图最近N天（缺省不裁剪）"
// @Router /api/students/{uuid}/problems [get]
func (h *CodeforcesHandler) GetProblemStats(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	stats, heatmap, err := h.studentService.GetProblemStats(c.Request.Context(), c.Param("uuid"), days)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"stats":   stats,
			"heatmap": heatmap,
		},
	})
}

func (h *CodeforcesHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound), errors.Is(err, service.ErrAnalyticsNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	default:
		h.logger.WithError(err).Error("Codeforces数据接口处理失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "服务器内部错误"})
	}
}
