package media

import (
	"fundverse/internal/global/jwt"
	"fundverse/internal/global/media"
	"fundverse/internal/global/response"
	"time"

	"github.com/gin-gonic/gin"
)

type presignReq struct {
	Kind        string `json:"kind" binding:"required"`
	CampaignID  string `json:"campaignId"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType"`
}

// Presign 返回预签名上传地址，上传完成后客户端把 fileUrl 写入项目
func Presign(c *gin.Context) {
	if store == nil {
		response.Fail(c, response.ErrStorage.WithTips("media storage not configured"))
		return
	}
	var req presignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	kind, _ := media.ParseKind(req.Kind)
	up, err := store.PresignUpload(c.Request.Context(), media.UploadRequest{
		Kind:        kind,
		CampaignID:  req.CampaignID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	payload, _ := jwt.GetUserPayload(c)
	log.Info("生成上传地址", "key", up.FileKey, "user_id", payload.UserID)
	response.Success(c, up)
}

// Download GET /media/download?key=...
func Download(c *gin.Context) {
	if store == nil {
		response.Fail(c, response.ErrStorage.WithTips("media storage not configured"))
		return
	}
	key := c.Query("key")
	if key == "" {
		response.Fail(c, response.ErrInvalidRequest.WithTips("key is required"))
		return
	}
	u, err := store.PresignDownload(c.Request.Context(), key, time.Hour)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"url": u})
}
