package postgres

import (
	"context"

	"stream-service/internal/models"

	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db}
}

// IsProjectMember reports whether userID belongs to projectID. It is read
// on every subscribe and never cached.
func (r *ProjectRepository) IsProjectMember(ctx context.Context, projectID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *ProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

func (r *ProjectRepository) AddMember(projectID, userID, role string) error {
	return r.db.Create(&models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}).Error
}

func (r *ProjectRepository) RemoveMember(projectID, userID string) error {
	return r.db.
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{}).Error
}

func (r *ProjectRepository) GetMemberIDs(projectID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.ProjectMember{}).
		Where("project_id = ?", projectID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// SyncMembers makes the project's member list match roles exactly, removing
// users that are no longer listed. Roles of existing members are kept.
func (r *ProjectRepository) SyncMembers(projectID string, roles map[string]string) error {
	current, err := r.GetMemberIDs(projectID)
	if err != nil {
		return err
	}

	existing := make(map[string]struct{}, len(current))
	for _, userID := range current {
		existing[userID] = struct{}{}
		if _, keep := roles[userID]; !keep {
			if err := r.RemoveMember(projectID, userID); err != nil {
				return err
			}
		}
	}

	for userID, role := range roles {
		if _, ok := existing[userID]; ok {
			continue
		}
		if err := r.AddMember(projectID, userID, role); err != nil {
			return err
		}
	}
	return nil
}
