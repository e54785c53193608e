package user

import (
	"fundverse/internal/global/database"
	"fundverse/internal/global/jwt"
	"fundverse/internal/global/response"
	"fundverse/internal/model"
	"fundverse/internal/repository"

	"github.com/gin-gonic/gin"
)

// LoginResult 登录与注册成功后返回给客户端，CLI 直接写入会话
type LoginResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func issue(u *model.User) LoginResult {
	return LoginResult{
		Token: jwt.CreateToken(jwt.Payload{
			UserID: u.ID,
			Email:  u.Email,
			Role:   string(u.Role),
		}),
		User: u.Public(),
	}
}

// Signup 注册后直接返回 token
func Signup(c *gin.Context) {
	var req repository.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	u, err := database.Users.Signup(c.Request.Context(), req)
	if err != nil {
		log.Warn("注册失败", "email", req.Email, "error", err)
		response.Fail(c, err)
		return
	}
	log.Info("用户注册成功", "user_id", u.ID, "role", u.Role)
	response.Success(c, issue(u))
}

// Login role 非空时要求账号角色一致
func Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	u, err := database.Users.Login(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		log.Warn("登录失败", "email", req.Email)
		response.Fail(c, err)
		return
	}
	log.Info("用户登录成功", "user_id", u.ID, "role", u.Role)
	response.Success(c, issue(u))
}

func Me(c *gin.Context) {
	payload, _ := jwt.GetUserPayload(c)
	u, err := database.Users.GetByID(c.Request.Context(), payload.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if u == nil {
		// token 仍有效但账号已被删除
		response.Fail(c, response.ErrTokenInvalid)
		return
	}
	response.Success(c, u.Public())
}
