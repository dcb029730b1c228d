package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 20, 0},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := NewPagination(tt.total, 1, tt.pageSize).TotalPages; got != tt.want {
			t.Errorf("total=%d pageSize=%d: 期望 %d 页，实际 %d", tt.total, tt.pageSize, tt.want, got)
		}
	}
}

func TestError_CarriesRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "rid-1")

	ErrorWithDetails(c, http.StatusBadRequest, 16004, "活动日期超出周报周期", "交换机巡检 2024-01-05")

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应应为合法 JSON: %v", err)
	}
	if resp.Code != 16004 || resp.RequestID != "rid-1" || resp.Details == "" {
		t.Errorf("错误响应字段不完整: %+v", resp)
	}
}

func TestFile_EncodesFilename(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	File(c, "周报 2024.xlsx", "application/octet-stream", []byte("x"))

	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") || strings.Contains(cd, " 2024") {
		t.Errorf("文件名应被编码，实际 %s", cd)
	}
}
