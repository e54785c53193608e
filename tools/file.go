package tools

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/gin-gonic/gin"
)

func FileExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SendAttachment 以附件形式返回内存中的文件，文件名按 RFC 5987 编码
func SendAttachment(c *gin.Context, displayName, contentType string, data []byte) {
	escaped := url.PathEscape(displayName)
	c.Header(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, escaped, escaped),
	)
	c.Data(http.StatusOK, contentType, data)
}
