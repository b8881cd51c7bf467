package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DayList is a set of 1-based day numbers relative to the trip's day list,
// stored as a JSON array in a text column.
type DayList []int

func (d DayList) Contains(day int) bool {
	for _, n := range d {
		if n == day {
			return true
		}
	}
	return false
}

func (d DayList) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *DayList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]int)(d))
	case string:
		return json.Unmarshal([]byte(v), (*[]int)(d))
	default:
		return fmt.Errorf("cannot scan %T into DayList", value)
	}
}
