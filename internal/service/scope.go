package service

import (
	"context"

	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/model"
	"github.com/Djomab/activity-weekly-report/internal/repository"
)

// ScopeResolver 根据操作人角色计算周报可见范围
//
//   - admin：全部周报
//   - director：本人负责的组织单元及其下属服务，外加本人创建的周报
//   - manager：本人负责的服务，外加本人创建的周报
type ScopeResolver interface {
	Resolve(ctx context.Context, actor dto.Actor) (repository.ReportScope, error)
}

type scopeResolver struct {
	repo *repository.Repository
}

// NewScopeResolver 创建 ScopeResolver 实例
func NewScopeResolver(repo *repository.Repository) ScopeResolver {
	return &scopeResolver{repo: repo}
}

func (r *scopeResolver) Resolve(ctx context.Context, actor dto.Actor) (repository.ReportScope, error) {
	if actor.Role == model.RoleAdmin {
		return repository.ReportScope{All: true}, nil
	}

	scope := repository.ReportScope{CreatorID: actor.UserID}

	managed, err := r.repo.Department.ListManagedBy(ctx, actor.UserID)
	if err != nil {
		return scope, err
	}

	seen := make(map[string]bool, len(managed))
	ids := make([]string, 0, len(managed))
	for _, d := range managed {
		if !seen[d.DepartmentID] {
			seen[d.DepartmentID] = true
			ids = append(ids, d.DepartmentID)
		}
	}

	if actor.Role == model.RoleDirector && len(ids) > 0 {
		children, err := r.repo.Department.ListChildren(ctx, ids)
		if err != nil {
			return scope, err
		}
		for _, d := range children {
			if !seen[d.DepartmentID] {
				seen[d.DepartmentID] = true
				ids = append(ids, d.DepartmentID)
			}
		}
	}

	scope.DepartmentIDs = ids
	return scope, nil
}
