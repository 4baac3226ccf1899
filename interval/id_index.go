package interval

// IDIndex is the id -> interval map (spec §4.3 "Id index").
type IDIndex struct {
	byID map[string]*Interval
}

func NewIDIndex() *IDIndex {
	return &IDIndex{byID: map[string]*Interval{}}
}

func (x *IDIndex) Add(iv *Interval) {
	assert(iv.id != "", "interval added to id index without an id")
	x.byID[iv.id] = iv
}

func (x *IDIndex) Remove(id string) {
	delete(x.byID, id)
}

func (x *IDIndex) Get(id string) (*Interval, bool) {
	iv, ok := x.byID[id]
	return iv, ok
}

func (x *IDIndex) Len() int { return len(x.byID) }

// All returns every interval currently indexed, in unspecified order.
func (x *IDIndex) All() []*Interval {
	out := make([]*Interval, 0, len(x.byID))
	for _, iv := range x.byID {
		out = append(out, iv)
	}
	return out
}
