package admin

import (
	"fundverse/internal/global/database"
	"fundverse/internal/global/jwt"
	"fundverse/internal/global/response"
	"fundverse/internal/global/storagekeys"
	"fundverse/internal/model"
	"fundverse/internal/repository"
	"fundverse/tools"
	"time"

	"github.com/gin-gonic/gin"
)

func ListUsers(c *gin.Context) {
	users, err := database.Users.List(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	out := make([]model.PublicUser, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	response.Success(c, out)
}

// DeleteUser 管理员不能删除自己
func DeleteUser(c *gin.Context) {
	id := c.Param("id")
	payload, _ := jwt.GetUserPayload(c)
	if payload.UserID == id {
		response.Fail(c, response.ErrInvalidRequest.WithTips("cannot delete the current admin"))
		return
	}

	deleted, err := database.Users.Delete(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	log.Info("管理员删除用户", "id", id, "admin", payload.UserID)
	response.Success(c, gin.H{"deleted": deleted})
}

func Stats(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := database.Campaigns.GetAll(ctx, repository.Filters{})
	if err != nil {
		response.Fail(c, err)
		return
	}
	users, err := database.Users.List(ctx)
	if err != nil {
		response.Fail(c, err)
		return
	}
	s := Summarize(list, users, time.Now())
	s.Storage = Usage(database.KV.GetAll(ctx, storagekeys.Prefix))
	response.Success(c, s)
}

// Export 按 sortBy 排序后导出全部项目
func Export(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := database.Campaigns.GetAll(ctx, repository.Filters{
		Category: c.Query("category"),
		SortBy:   c.Query("sortBy"),
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	users, err := database.Users.List(ctx)
	if err != nil {
		response.Fail(c, err)
		return
	}

	now := time.Now()
	f, err := Workbook(list, users, now)
	if err != nil {
		log.Error("导出 excel 错误", "error", err)
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	tools.SendAttachment(c, FileName(now), tools.ExcelContentType, buf.Bytes())
}

// Clear 清空全部项目和普通用户，保留当前管理员以免被锁在系统外
func Clear(c *gin.Context) {
	ctx := c.Request.Context()
	payload, _ := jwt.GetUserPayload(c)

	res, err := repository.Reset(ctx, database.KV, database.Campaigns, database.Users, repository.ResetOptions{
		Users:     true,
		KeepUsers: []string{payload.UserID},
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	log.Warn("管理员清空数据", "admin", payload.UserID, "users_removed", res.UsersRemoved)
	response.Success(c, res)
}
