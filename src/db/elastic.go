package db

import (
	"RainMatrix/src/types"
	"context"
	"encoding/json"

	"github.com/olivere/elastic/v7"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	nearbyLimit = 3

	placesMapping = `{
  "settings": {"number_of_shards": 1, "number_of_replicas": 0},
  "mappings": {
    "properties": {
      "label":    {"type": "keyword"},
      "query":    {"type": "text"},
      "admin":    {"type": "keyword"},
      "location": {"type": "geo_point"}
    }
  }
}`
)

type placeDoc struct {
	Label    string           `json:"label"`
	Query    string           `json:"query"`
	Admin    string           `json:"admin,omitempty"`
	Location elastic.GeoPoint `json:"location"`
}

type ElasticStore struct {
	Client *elastic.Client
	Index  string
}

// NewElasticStore connects without sniffing so single-node and proxied
// clusters work.
func NewElasticStore(url, index string) (*ElasticStore, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create elasticsearch client")
	}
	return &ElasticStore{Client: client, Index: index}, nil
}

func (es *ElasticStore) CreateIndexWithMapping(ctx context.Context) error {
	exists, err := es.Client.IndexExists(es.Index).Do(ctx)
	if err != nil {
		return errors.Wrap(err, "check index exists")
	}
	if exists {
		log.WithField("index", es.Index).Debug("index already exists")
		return nil
	}

	createIndex, err := es.Client.CreateIndex(es.Index).BodyString(placesMapping).Do(ctx)
	if err != nil {
		return errors.Wrap(err, "create index")
	}
	if !createIndex.Acknowledged {
		log.WithField("index", es.Index).Warn("create index was not acknowledged")
	}

	log.WithField("index", es.Index).Info("index created")
	return nil
}

// IndexPlaces bulk-indexes places keyed by label, then removes documents
// whose label is no longer in the list.
func (es *ElasticStore) IndexPlaces(ctx context.Context, places []types.Place) error {
	if err := es.CreateIndexWithMapping(ctx); err != nil {
		return err
	}
	if len(places) == 0 {
		return es.deleteStale(ctx, nil)
	}

	bulkRequest := es.Client.Bulk()
	for _, place := range places {
		doc := placeDoc{
			Label:    place.Label,
			Query:    place.Query,
			Admin:    place.Admin,
			Location: elastic.GeoPoint{Lat: place.Location.Lat, Lon: place.Location.Lon},
		}
		req := elastic.NewBulkIndexRequest().Index(es.Index).Id(place.Label).Doc(doc)
		bulkRequest = bulkRequest.Add(req)
	}

	bulkResponse, err := bulkRequest.Refresh("true").Do(ctx)
	if err != nil {
		return errors.Wrap(err, "bulk index places")
	}

	for _, item := range bulkResponse.Failed() {
		if item.Error != nil {
			log.WithFields(log.Fields{"id": item.Id, "reason": item.Error.Reason}).Warn("failed to index place")
		}
	}

	labels := make([]string, 0, len(places))
	for _, place := range places {
		labels = append(labels, place.Label)
	}
	return es.deleteStale(ctx, labels)
}

func (es *ElasticStore) deleteStale(ctx context.Context, keep []string) error {
	var query elastic.Query = elastic.NewMatchAllQuery()
	if len(keep) > 0 {
		values := make([]interface{}, len(keep))
		for i, label := range keep {
			values[i] = label
		}
		query = elastic.NewBoolQuery().MustNot(elastic.NewTermsQuery("label", values...))
	}

	res, err := es.Client.DeleteByQuery(es.Index).
		Query(query).
		Refresh("true").
		Do(ctx)
	if err != nil {
		return errors.Wrap(err, "delete stale places")
	}
	if res.Deleted > 0 {
		log.WithFields(log.Fields{"index": es.Index, "deleted": res.Deleted}).Info("removed stale places")
	}
	return nil
}

func (es *ElasticStore) GetNearbyPlaces(ctx context.Context, lat, lon float64) ([]types.Place, error) {
	searchResult, err := es.Client.Search().
		Index(es.Index).
		Query(elastic.NewMatchAllQuery()).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(lat, lon).
			Asc().
			Unit("km").
			DistanceType("arc").
			IgnoreUnmapped(true)).
		Size(nearbyLimit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "search nearby places")
	}

	var places []types.Place
	for _, hit := range searchResult.Hits.Hits {
		var doc placeDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			log.WithError(err).Warn("skipping malformed place document")
			continue
		}
		places = append(places, types.Place{
			Label:    doc.Label,
			Query:    doc.Query,
			Admin:    doc.Admin,
			Location: types.GeoPoint{Lat: doc.Location.Lat, Lon: doc.Location.Lon},
		})
	}

	return places, nil
}
