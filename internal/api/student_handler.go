package api

import (
	"errors"
	"net/http"

	"TrackerSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StudentHandler 名册增删改查接口
type StudentHandler struct {
	studentService *service.StudentService
	logger         *logrus.Logger
}

func NewStudentHandler(studentService *service.StudentService, logger *logrus.Logger) *StudentHandler {
	return &StudentHandler{studentService: studentService, logger: logger}
}

// ListStudents 学生列表（带rating概览）
// @Summary 获取全部学生及其Codeforces概览
// @Success 200 {object} map[string]interface{}
// @Router /api/students [get]
func (h *StudentHandler) ListStudents(c *gin.Context) {
	overviews, err := h.studentService.ListStudents(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("获取学生列表失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(overviews),
		"data":    overviews,
	})
}

// GetStudentDetail 单个学生详情 + 完整分析记录
// @Summary 获取学生详情
// @Param uuid path string true "学生UUID"
// @Router /api/students/{uuid} [get]
func (h *StudentHandler) GetStudentDetail(c *gin.Context) {
	student, record, err := h.studentService.GetStudentDetail(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"student":        student,
			"codeforcesData": record, // 从未同步成功时为null，属正常状态
		},
	})
}

// CreateStudent 新建学生（成功后后台触发初始同步）
// @Summary 新建学生
// @Router /api/students [post]
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var input service.CreateStudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "请求体格式错误"})
		return
	}
	student, err := h.studentService.CreateStudent(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": student})
}

// UpdateStudent 更新学生（句柄变更后台触发重新同步）
// @Summary 更新学生
// @Param uuid path string true "学生UUID"
// @Router /api/students/{uuid} [put]
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	var input service.UpdateStudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "请求体格式错误"})
		return
	}
	student, err := h.studentService.UpdateStudent(c.Request.Context(), c.Param("uuid"), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": student})
}

// DeleteStudent 删除学生（分析记录级联删除）
// @Summary 删除学生
// @Param uuid path string true "学生UUID"
// @Router /api/students/{uuid} [delete]
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	if err := h.studentService.DeleteStudent(c.Request.Context(), c.Param("uuid")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

// ToggleNotifications 开关提醒邮件
// @Summary 切换邮件通知
// @Param uuid path string true "学生UUID"
// @Router /api/students/{uuid}/notifications [patch]
func (h *StudentHandler) ToggleNotifications(c *gin.Context) {
	enabled, err := h.studentService.ToggleNotifications(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"emailNotifications": enabled},
	})
}

// writeError 统一错误响应：校验/重复→400，不存在→404，其余→500
func (h *StudentHandler) writeError(c *gin.Context, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validation.Msg})
	case errors.Is(err, service.ErrDuplicateStudent):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, service.ErrStudentNotFound), errors.Is(err, service.ErrAnalyticsNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	default:
		h.logger.WithError(err).Error("学生接口处理失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "服务器内部错误"})
	}
}
