// Package storagekeys 集中管理键值存储使用的键名，避免拼写错误和键冲突
package storagekeys

import "strings"

// Prefix 所有 FundVerse 键的公共前缀
const Prefix = "fundverse_"

type Key string

const (
	// 用户与登录态
	CurrentUser Key = Prefix + "current_user"
	AuthToken   Key = Prefix + "auth_token"
	UserRole    Key = Prefix + "user_role"
	Users       Key = Prefix + "users"

	// 众筹项目
	Campaigns     Key = Prefix + "campaigns"
	UserCampaigns Key = Prefix + "user_campaigns"

	// 支付
	Payments       Key = Prefix + "payments"
	PaymentHistory Key = Prefix + "payment_history"

	// 界面偏好
	SidebarState       Key = Prefix + "sidebar_state"
	StudentSidebarOpen Key = Prefix + "student_sidebar_open"
	CompanySidebarOpen Key = Prefix + "company_sidebar_open"
	UserPreferences    Key = Prefix + "user_preferences"
)

var registry = []Key{
	CurrentUser,
	AuthToken,
	UserRole,
	Users,
	Campaigns,
	UserCampaigns,
	Payments,
	PaymentHistory,
	SidebarState,
	StudentSidebarOpen,
	CompanySidebarOpen,
	UserPreferences,
}

// 容量不足时允许清理的键，丢失后可由界面或用户重新生成
var evictable = []Key{
	PaymentHistory,
	SidebarState,
	StudentSidebarOpen,
	CompanySidebarOpen,
	UserPreferences,
}

// 清空数据时不随命名空间一起删除的键：登录态，以及由仓库在自己的锁内处理的集合
var retained = []Key{
	CurrentUser,
	AuthToken,
	UserRole,
	Users,
	Campaigns,
}

func (k Key) String() string {
	return string(k)
}

// All 返回注册表中的全部键
func All() []Key {
	out := make([]Key, len(registry))
	copy(out, registry)
	return out
}

// Evictable 返回配额清理钩子可以删除的键
func Evictable() []Key {
	out := make([]Key, len(evictable))
	copy(out, evictable)
	return out
}

// Retained 返回清空数据时需要保留的键
func Retained() []Key {
	out := make([]Key, len(retained))
	copy(out, retained)
	return out
}

// Namespaced 为临时键加上命名空间前缀，已带前缀的不重复添加
func Namespaced(name string) Key {
	if strings.HasPrefix(name, Prefix) {
		return Key(name)
	}
	return Key(Prefix + name)
}
