package handler

import (
	"net/http"

	"github.com/paike/paike/internal/constraints"
	apperrors "github.com/paike/paike/pkg/errors"
)

// RuleLibraryHandler 返回引擎支持的全部约束规则及参数定义
func RuleLibraryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, apperrors.New(apperrors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	respondJSON(w, http.StatusOK, constraints.LibraryResponse{Library: constraints.GetLibrary()})
}
