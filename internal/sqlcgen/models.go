package sqlcgen

import "time"

type Dataset struct {
	Name      string
	Body      string
	UpdatedAt time.Time
}
