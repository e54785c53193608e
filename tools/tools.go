package tools

import (
	"golang.org/x/crypto/bcrypt"
)

// PanicOnErr 只用于启动阶段，运行期错误必须返回
func PanicOnErr(err error) {
	if err != nil {
		panic(err)
	}
}

func PasswordEncrypt(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func PasswordCompare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
