package directory

import "time"

type Department struct {
	ID        int64
	Name      string
	Code      string
	ManagerID *int64
	Note      string
	CreatedAt time.Time
}

// Employee — сотрудник, за которым закрепляют активы.
type Employee struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DepartmentID *int64    `json:"department_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
