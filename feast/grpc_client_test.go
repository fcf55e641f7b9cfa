package feast

import (
	"context"
	"testing"
)

// TestGrpcClient_GetOnlineFeatures 验证在线特征读取的基本链路。
// 需要连接真实的 Feast Feature Server，默认跳过。
func TestGrpcClient_GetOnlineFeatures(t *testing.T) {
	t.Skip("requires a running Feast feature server")

	ctx := context.Background()

	client, err := NewGrpcClient("localhost", 6565, "trendkit")
	if err != nil {
		t.Fatalf("NewGrpcClient() error = %v", err)
	}
	defer client.Close()

	resp, err := client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features: []string{
			"customer_stats:lifetime_spend",
			"customer_stats:visit_freq",
		},
		EntityRows: []map[string]any{
			{"customer_id": "c-1001"},
			{"customer_id": "c-1002"},
		},
	})
	if err != nil {
		t.Fatalf("GetOnlineFeatures() error = %v", err)
	}
	if len(resp.FeatureVectors) != 2 {
		t.Errorf("feature vectors = %d, want 2", len(resp.FeatureVectors))
	}
}

func TestGrpcClient_ValidatesRequest(t *testing.T) {
	c := &GrpcClient{Project: "trendkit"}

	if _, err := c.GetOnlineFeatures(context.Background(), &GetOnlineFeaturesRequest{}); err == nil {
		t.Error("want error for empty features")
	}
	if _, err := c.GetOnlineFeatures(context.Background(), &GetOnlineFeaturesRequest{
		Features: []string{"customer_stats:lifetime_spend"},
	}); err == nil {
		t.Error("want error for empty entity rows")
	}
}
