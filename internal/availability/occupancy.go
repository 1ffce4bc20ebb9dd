package availability

import "sort"

// Occupancy is the set of occupied HH:MM slots of one date. When AllOccupied is set every
// slot counts as taken.
type Occupancy struct {
	AllOccupied bool
	times       map[string]struct{}
}

func NewOccupancy(times ...string) Occupancy {
	o := Occupancy{times: make(map[string]struct{}, len(times))}
	for _, t := range times {
		o.add(t)
	}
	return o
}

// Closed is the occupancy reported when the store could not be read.
func Closed() Occupancy {
	return Occupancy{AllOccupied: true, times: map[string]struct{}{}}
}

func (o *Occupancy) add(t string) {
	if t == "" {
		return
	}
	if o.times == nil {
		o.times = map[string]struct{}{}
	}
	o.times[t] = struct{}{}
}

func (o Occupancy) Contains(t string) bool {
	if o.AllOccupied {
		return true
	}
	_, ok := o.times[t]
	return ok
}

// Times returns the occupied slots in ascending order.
func (o Occupancy) Times() []string {
	out := make([]string, 0, len(o.times))
	for t := range o.times {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (o Occupancy) Len() int {
	return len(o.times)
}
