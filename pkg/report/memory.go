package report

import (
	"sort"
	"sync"
)

// Memory keeps reports for the lifetime of the process.
type Memory struct {
	lock    sync.Mutex
	reports []Report
}

func (m *Memory) Put(r *Report) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.reports = append(m.reports, *r)
	return nil
}

func (m *Memory) List(image string) ([]Report, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var reports []Report
	for i := range m.reports {
		if m.reports[i].Image == image {
			reports = append(reports, m.reports[i])
		}
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Started.Before(reports[j].Started)
	})
	return reports, nil
}

var (
	_ Store = &Memory{}
	_ Store = &ObjectStore{}
	_ Store = &PGReportStore{}
)
