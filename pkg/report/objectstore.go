package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/weberc2/fsck/pkg/types"
)

// ObjectStore keeps one JSON object per run at
// `<prefix>/<slug(image)>/<runID>.json`.
type ObjectStore struct {
	Store  types.ObjectStore
	Bucket string
	Prefix string
}

func (ors *ObjectStore) dir(image string) string {
	return strings.TrimSuffix(ors.Prefix, "/") + "/" + slug.Make(image) + "/"
}

// Key returns the object key for `r`.
func (ors *ObjectStore) Key(r *Report) string {
	return ors.dir(r.Image) + r.RunID.String() + ".json"
}

func (ors *ObjectStore) Put(r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report `%s`: %w", r.RunID, err)
	}
	if err := ors.Store.PutObject(
		ors.Bucket,
		ors.Key(r),
		bytes.NewReader(data),
	); err != nil {
		return fmt.Errorf("putting report `%s`: %w", r.RunID, err)
	}
	return nil
}

func (ors *ObjectStore) List(image string) ([]Report, error) {
	keys, err := ors.Store.ListObjects(ors.Bucket, ors.dir(image))
	if err != nil {
		return nil, fmt.Errorf("listing reports for `%s`: %w", image, err)
	}

	reports := make([]Report, 0, len(keys))
	for _, key := range keys {
		r, err := ors.get(key)
		if err != nil {
			return nil, fmt.Errorf("listing reports for `%s`: %w", image, err)
		}
		// distinct images can share a slug
		if r.Image == image {
			reports = append(reports, r)
		}
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Started.Before(reports[j].Started)
	})
	return reports, nil
}

func (ors *ObjectStore) get(key string) (Report, error) {
	body, err := ors.Store.GetObject(ors.Bucket, key)
	if err != nil {
		return Report{}, fmt.Errorf("getting report `%s`: %w", key, err)
	}
	defer body.Close()

	var r Report
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("decoding report `%s`: %w", key, err)
	}
	return r, nil
}
