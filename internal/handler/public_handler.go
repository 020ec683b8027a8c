package handler

import (
	"net/http"

	"github.com/hitoshi/sessiongate/internal/model"
)

// PublicMessage は公開エンドポイントが返すメッセージ。
const PublicMessage = "This is a public endpoint"

// Public は認証不要の公開リソースを返す。
// GET /api/public
func Public(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.PublicResource{Message: PublicMessage})
}
