package repository

import (
	"context"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/storagekeys"
)

// ResetOptions 控制清空数据的范围
type ResetOptions struct {
	Users     bool     // 同时删除用户
	KeepUsers []string // 删除用户时保留的 id，通常是执行操作的管理员
}

// ResetResult 清空结果
type ResetResult struct {
	UsersRemoved int `json:"usersRemoved"`
}

// Reset 清空命名空间下的全部数据
// 项目和用户由各自的仓库在锁内清理，其余键（支付记录、界面偏好等）通过 ClearNamespace 删除，登录态保留
func Reset(ctx context.Context, store *kvstore.Service, campaigns *CampaignRepository, users *UserRepository, opts ResetOptions) (ResetResult, error) {
	var res ResetResult
	if err := campaigns.Clear(ctx); err != nil {
		return res, err
	}
	if opts.Users {
		removed, err := users.Clear(ctx, opts.KeepUsers...)
		if err != nil {
			return res, err
		}
		res.UsersRemoved = removed
	}
	if !store.ClearNamespace(ctx, storagekeys.Prefix, storagekeys.Retained()...) {
		return res, storageErr(store, "clear namespace")
	}
	return res, nil
}
