package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

func (c *Client) ListMappingRules(ctx context.Context, productID int64) ([]model.MappingRule, error) {
	return listEnvelope[model.MappingRule](ctx, c, proxyPath(productID, "/mapping_rules.json"), "mapping_rules", "mapping_rule", nil)
}

func (c *Client) CreateMappingRule(ctx context.Context, productID int64, params model.MappingRuleParams) (*model.MappingRule, error) {
	form := url.Values{
		"http_method": {params.HTTPMethod},
		"pattern":     {params.Pattern},
		"delta":       {strconv.Itoa(params.Delta)},
		"metric_id":   {itoa(params.MetricID)},
	}
	var r model.MappingRule
	if err := c.doItem(ctx, http.MethodPost, proxyPath(productID, "/mapping_rules.json"), form, "mapping_rule", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) DeleteMappingRule(ctx context.Context, productID, ruleID int64) error {
	return c.do(ctx, http.MethodDelete, proxyPath(productID, "/mapping_rules/"+itoa(ruleID)+".json"), nil, nil)
}

func (c *Client) FetchHitsMetric(ctx context.Context, productID int64) (*model.Metric, error) {
	metrics, err := listEnvelope[model.Metric](ctx, c, "/services/"+itoa(productID)+"/metrics.json", "metrics", "metric", nil)
	if err != nil {
		return nil, err
	}
	for i := range metrics {
		if metrics[i].SystemName == model.HitsMetric {
			return &metrics[i], nil
		}
	}
	return nil, &syncerr.NotFoundError{Kind: "metric", Key: model.HitsMetric}
}
