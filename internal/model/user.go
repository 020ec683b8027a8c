// Package model はドメインモデルを定義する。
package model

// UserIdentity は認証済みクエリが返すユーザー情報を表す。
// フィールド構成はIdPに依存し、いずれも必須ではない。
type UserIdentity struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// HasIdentifier は識別用フィールドが1つ以上存在するかを返す。
func (u *UserIdentity) HasIdentifier() bool {
	if u == nil {
		return false
	}
	return u.Email != "" || u.Username != "" || u.Name != ""
}

// PublicResource は認証不要で取得できるサーバー提供データを表す。
type PublicResource struct {
	Message string `json:"message"`
}
