// Package mocks provides hand-written testify mocks for the storage port.
package mocks

import (
	"context"

	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStoryRepository mocks storage.StoryRepository.
type MockStoryRepository struct {
	mock.Mock
}

func (m *MockStoryRepository) Create(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *MockStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *MockStoryRepository) GetByEditorKey(ctx context.Context, key uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *MockStoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Story, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *MockStoryRepository) List(ctx context.Context, filter storage.StoryFilter) ([]models.Story, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Story), args.Error(1)
}

func (m *MockStoryRepository) Update(ctx context.Context, id uuid.UUID, upd storage.StoryUpdate) (*models.Story, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *MockStoryRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockStoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPageRepository mocks storage.PageRepository.
type MockPageRepository struct {
	mock.Mock
}

func (m *MockPageRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.StoryPage, error) {
	args := m.Called(ctx, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StoryPage), args.Error(1)
}

func (m *MockPageRepository) Create(ctx context.Context, page *models.StoryPage) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}

func (m *MockPageRepository) Update(ctx context.Context, storyID, pageID uuid.UUID, upd storage.PageUpdate) (*models.StoryPage, error) {
	args := m.Called(ctx, storyID, pageID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoryPage), args.Error(1)
}

func (m *MockPageRepository) Reorder(ctx context.Context, storyID, pageID uuid.UUID, newOrder int) error {
	args := m.Called(ctx, storyID, pageID, newOrder)
	return args.Error(0)
}

func (m *MockPageRepository) Delete(ctx context.Context, storyID, pageID uuid.UUID) error {
	args := m.Called(ctx, storyID, pageID)
	return args.Error(0)
}

// MockKeywordRepository mocks storage.KeywordRepository.
type MockKeywordRepository struct {
	mock.Mock
}

func (m *MockKeywordRepository) List(ctx context.Context) ([]models.Keyword, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Keyword), args.Error(1)
}

func (m *MockKeywordRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.Keyword, error) {
	args := m.Called(ctx, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Keyword), args.Error(1)
}

// MockAuthorRepository mocks storage.AuthorRepository.
type MockAuthorRepository struct {
	mock.Mock
}

func (m *MockAuthorRepository) List(ctx context.Context) ([]models.Author, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Author), args.Error(1)
}
