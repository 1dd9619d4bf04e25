// internal/storage/file_storage.go
package storage

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/Corphon/RevidClone/internal/errors"
	"github.com/Corphon/RevidClone/internal/models"
)

const (
	projectExt    = ".json"
	previewSuffix = "_preview.json"
	tempSuffix    = ".tmp"
)

// ProjectStorage 基于文件系统的项目存储，每个项目一个 JSON 文件
type ProjectStorage struct {
	home string

	// 文件级别锁 path -> *sync.RWMutex
	fileLocks sync.Map

	// 可选的已解析项目缓存
	cache *ProjectCache
}

// NewProjectStorage 创建项目存储，目录不存在时自动创建
func NewProjectStorage(home string) (*ProjectStorage, error) {
	if strings.TrimSpace(home) == "" {
		return nil, apperrors.NewValidationError("storage home is required", nil)
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, apperrors.NewIOError(fmt.Sprintf("create storage directory %s", home), err)
	}
	return &ProjectStorage{home: home}, nil
}

// EnableCache 为 Load 启用项目缓存，传入 nil 关闭缓存
func (s *ProjectStorage) EnableCache(cache *ProjectCache) {
	s.cache = cache
}

// Home 返回存储根目录
func (s *ProjectStorage) Home() string {
	return s.home
}

// PathFor 返回项目文件路径
func (s *ProjectStorage) PathFor(projectID string) string {
	return filepath.Join(s.home, projectID+projectExt)
}

// IsProjectPath 判断路径是否落在存储根目录下的项目文件上（List 会读取的文件）
func (s *ProjectStorage) IsProjectPath(path string) bool {
	dir, name := filepath.Split(absPath(path))
	return filepath.Clean(dir) == absPath(s.home) && isProjectFile(name)
}

// DefaultPreviewPath 返回默认预览文件路径
func (s *ProjectStorage) DefaultPreviewPath(projectID string) string {
	return filepath.Join(s.home, projectID+previewSuffix)
}

// AssetsRoot 返回项目素材目录（仅作为路径写入预览，不会创建）
func (s *ProjectStorage) AssetsRoot(projectID string) string {
	return filepath.Join(s.home, "assets", projectID)
}

func (s *ProjectStorage) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := s.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// Save 覆盖写入项目快照（最后写入者获胜）
func (s *ProjectStorage) Save(project models.Project) error {
	content, err := project.ToJSON()
	if err != nil {
		return apperrors.NewProcessingError(fmt.Sprintf("serialize project %s", project.ProjectID), err)
	}
	path := s.PathFor(project.ProjectID)
	if err := s.writeFile(path, content); err != nil {
		if s.cache != nil {
			s.cache.Delete(path)
		}
		return err
	}

	if s.cache != nil {
		if info, err := os.Stat(path); err == nil {
			s.cache.Put(path, info, project)
		}
	}
	return nil
}

// Load 读取并解析项目
func (s *ProjectStorage) Load(projectID string) (models.Project, error) {
	if !models.IsValidProjectID(projectID) {
		return models.Project{}, apperrors.NewNotFoundError(fmt.Sprintf("project %s not found", projectID), nil)
	}
	return s.loadPath(s.PathFor(projectID), projectID)
}

// List 按文件名顺序惰性遍历所有项目，每次调用都会重新扫描目录
func (s *ProjectStorage) List() iter.Seq2[models.Project, error] {
	return func(yield func(models.Project, error) bool) {
		entries, err := os.ReadDir(s.home)
		if err != nil {
			yield(models.Project{}, apperrors.NewIOError(fmt.Sprintf("read storage directory %s", s.home), err))
			return
		}

		var names []string
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !isProjectFile(name) {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			projectID := strings.TrimSuffix(name, projectExt)
			project, err := s.loadPath(filepath.Join(s.home, name), projectID)
			if !yield(project, err) {
				return
			}
		}
	}
}

// ExportsDir 返回导出文件目录
func (s *ProjectStorage) ExportsDir() string {
	return filepath.Join(s.home, "exports")
}

// WriteFile 原子写入任意内容，父目录不存在时自动创建
func (s *ProjectStorage) WriteFile(path string, content []byte) error {
	return s.writeFile(path, content)
}

// WriteJSON 以排序键、两空格缩进写入任意 JSON 文档
func (s *ProjectStorage) WriteJSON(path string, data any) error {
	content, err := models.MarshalSorted(data)
	if err != nil {
		return apperrors.NewProcessingError("serialize JSON document", err)
	}
	return s.writeFile(path, content)
}

func (s *ProjectStorage) loadPath(fullPath, projectID string) (models.Project, error) {
	lock := s.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	info, err := os.Stat(fullPath)
	if err != nil {
		return models.Project{}, readError(projectID, err)
	}
	if s.cache != nil {
		if project, ok := s.cache.Get(fullPath, info); ok {
			return project, nil
		}
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return models.Project{}, readError(projectID, err)
	}

	project, err := models.ProjectFromJSON(content)
	if err != nil {
		return models.Project{}, apperrors.NewCorruptDataError(fmt.Sprintf("corrupt project file %s", fullPath), err)
	}
	if s.cache != nil {
		s.cache.Put(fullPath, info, project)
	}
	return project, nil
}

func readError(projectID string, err error) error {
	if os.IsNotExist(err) {
		return apperrors.NewNotFoundError(fmt.Sprintf("project %s not found", projectID), err)
	}
	return apperrors.NewIOError(fmt.Sprintf("read project %s", projectID), err)
}

// writeFile 原子性文件写入：先写临时文件再重命名
func (s *ProjectStorage) writeFile(fullPath string, content []byte) error {
	lock := s.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("create directory for %s", fullPath), err)
	}

	tempPath := fullPath + tempSuffix
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("write %s", tempPath), err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		_ = os.Remove(tempPath)
		return apperrors.NewIOError(fmt.Sprintf("write %s", fullPath), err)
	}
	return nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func isProjectFile(name string) bool {
	return strings.HasSuffix(name, projectExt) && !strings.HasSuffix(name, previewSuffix)
}
