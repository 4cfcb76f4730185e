package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses
}

// loadChapters assembles a course's chapters and contents ordered by position.
func (repo *courseRepository) loadChapters(courseID string) []course.Chapter {
	var chapters []course.Chapter
	for _, ch := range repo.db.chapters {
		if ch.CourseID != courseID {
			continue
		}
		chapter := *ch
		chapter.Contents = nil
		for _, cnt := range repo.db.contents {
			if cnt.ChapterID == chapter.ID {
				chapter.Contents = append(chapter.Contents, *cnt)
			}
		}
		sort.Slice(chapter.Contents, func(i, j int) bool {
			return chapter.Contents[i].Position < chapter.Contents[j].Position
		})
		chapters = append(chapters, chapter)
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Position < chapters[j].Position })
	return chapters
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := repo.query()

	if filter.Search != "" {
		var filtered []course.Course
		search := strings.ToLower(filter.Search)
		for _, crs := range courses {
			if strings.Contains(strings.ToLower(crs.Title), search) ||
				strings.Contains(strings.ToLower(crs.Description), search) {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if filter.InstructorID != "" {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.InstructorID == filter.InstructorID {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if filter.IsPublished != nil {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.IsPublished == *filter.IsPublished {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if filter.IsFree != nil {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.IsFree == *filter.IsFree {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}

	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		out := *crs
		out.Chapters = repo.loadChapters(out.ID)
		return out, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Slug == slug {
			out := *crs
			out.Chapters = repo.loadChapters(out.ID)
			return out, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	stored := crs
	stored.Chapters = nil
	repo.db.courses[crs.ID] = &stored
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.courses, id)
	}
	return nil
}

func (repo *courseRepository) CreateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.chapters[ch.ID] = &ch
	return ch, nil
}

func (repo *courseRepository) UpdateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.chapters[ch.ID]; !ok {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	stored := ch
	stored.Contents = nil
	repo.db.chapters[ch.ID] = &stored
	return ch, nil
}

func (repo *courseRepository) DeleteChaptersByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.chapters, id)
	}
	return nil
}

func (repo *courseRepository) CreateContent(ctx context.Context, cnt course.Content) (course.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.contents[cnt.ID] = &cnt
	return cnt, nil
}

func (repo *courseRepository) UpdateContent(ctx context.Context, cnt course.Content) (course.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.contents[cnt.ID]; !ok {
		return course.Content{}, course.ErrContentNotFound
	}
	repo.db.contents[cnt.ID] = &cnt
	return cnt, nil
}

func (repo *courseRepository) DeleteContentsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.contents, id)
	}
	return nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, userID, courseID string) (course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID && enr.CourseID == courseID {
			return *enr, nil
		}
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) UpsertEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.enrollments {
		if existing.UserID == enr.UserID && existing.CourseID == enr.CourseID {
			return *existing, nil
		}
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) UpdateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[enr.ID]; !ok {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) QueryUserEnrollments(ctx context.Context, userID string) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]course.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.After(enrs[j].CreatedAt) })
	return enrs, nil
}
