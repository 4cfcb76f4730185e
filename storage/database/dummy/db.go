// Package dummydb provides in-memory repositories for tests and local dev.
package dummydb

import (
	"sync"

	"github.com/tshilobo/soko/core/coupon"
	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/ebook"
	"github.com/tshilobo/soko/core/exam"
	"github.com/tshilobo/soko/core/order"
	"github.com/tshilobo/soko/core/user"
)

type (
	DB struct {
		user   *userTable
		course *courseTable
		ebook  *ebookTable
		coupon *couponTable
		order  *orderTable
		exam   *examTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		courses     map[string]*course.Course
		chapters    map[string]*course.Chapter
		contents    map[string]*course.Content
		enrollments map[string]*course.Enrollment
	}

	ebookTable struct {
		sync.RWMutex
		table map[string]*ebook.Ebook
	}

	couponTable struct {
		sync.RWMutex
		coupons map[string]*coupon.Coupon
		usages  map[string]*coupon.Usage
	}

	orderTable struct {
		sync.RWMutex
		orders   map[string]*order.Order
		payments map[string]*order.Payment
	}

	examTable struct {
		sync.RWMutex
		exams     map[string]*exam.Exam
		questions map[string]*exam.Question
		attempts  map[string]*exam.Attempt
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			courses:     make(map[string]*course.Course),
			chapters:    make(map[string]*course.Chapter),
			contents:    make(map[string]*course.Content),
			enrollments: make(map[string]*course.Enrollment),
		},
		ebook: &ebookTable{table: make(map[string]*ebook.Ebook)},
		coupon: &couponTable{
			coupons: make(map[string]*coupon.Coupon),
			usages:  make(map[string]*coupon.Usage),
		},
		order: &orderTable{
			orders:   make(map[string]*order.Order),
			payments: make(map[string]*order.Payment),
		},
		exam: &examTable{
			exams:     make(map[string]*exam.Exam),
			questions: make(map[string]*exam.Question),
			attempts:  make(map[string]*exam.Attempt),
		},
	}
	return db, nil
}
