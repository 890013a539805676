package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/rs/zerolog/log"
)

// The heuristic fires only when an utterance mentions both a cost concern
// and a recognizable service name.
var pricingKeywords = []string{
	"料金", "コスト", "価格", "費用", "月額", "年額",
	"いくら", "予算", "見積もり", "見積り", "プラン",
	"pricing", "cost", "price", "budget", "estimate",
}

var awsServiceKeywords = []string{
	"EC2", "S3", "RDS", "Lambda", "DynamoDB", "CloudFront",
	"ECS", "EKS", "Fargate", "API Gateway", "SQS", "SNS",
	"Aurora", "EBS", "EFS", "Elasticache", "Redshift",
}

// MatchesPricingQuestion reports whether the utterance looks like an AWS
// pricing question: at least one cost keyword and one service name,
// case-insensitive substring match.
func MatchesPricingQuestion(utterance string) bool {
	lower := strings.ToLower(utterance)

	hasPricing := false
	for _, kw := range pricingKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hasPricing = true
			break
		}
	}
	if !hasPricing {
		return false
	}

	for _, kw := range awsServiceKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Estimator produces human-readable AWS price estimates from utterances.
type Estimator struct {
	llm llm.Generator
}

// NewEstimator creates a pricing estimator
func NewEstimator(generator llm.Generator) *Estimator {
	return &Estimator{llm: generator}
}

const resourceExtractionPrompt = `あなたはAWSリソース分析のエキスパートです。ユーザーのメッセージから、AWS料金計算に必要なリソース情報を抽出してください。

以下の情報を抽出してください：
- EC2インスタンスのタイプと数
- ストレージ容量（GB/TB）
- データベースのタイプとサイズ
- 予想トラフィック量、アクセス数、リクエスト数
- 利用期間やリージョン情報
- 冗長化要件（マルチAZなど）

JSON形式で回答してください。例：
{
  "ec2_instances": "t3.medium × 3",
  "storage": "100GB S3, 500GB EBS",
  "database": "MySQL RDS db.t3.medium",
  "traffic": "月間10万リクエスト",
  "region": "東京リージョン",
  "redundancy": "マルチAZ構成",
  "duration": "12ヶ月"
}

情報が不明確な場合は空のオブジェクトや最も妥当な値を返してください。`

const pricingBaselinePrompt = `あなたはAWS料金計算の専門家です。ユーザーのメッセージから、言及されているAWSサービスを特定し、一般的な使用パターンでの月額料金の概算を計算してください。

以下の点に注意してください：
1. 小規模、中規模、大規模の3つのユースケース別に料金を示してください
2. 各サービスの料金内訳と合計コストを表示してください
3. コスト最適化のためのヒントを1-2つ追加してください
4. 回答は料金計算部分のみ、箇条書きで簡潔に

以下はAWSの主要サービスの単価情報です：
EC2:
- t3.micro: $0.0104/時間（約$7.5/月）、2 vCPU、1GiB RAM
- t3.small: $0.0208/時間（約$15/月）、2 vCPU、2GiB RAM
- t3.medium: $0.0416/時間（約$30/月）、2 vCPU、4GiB RAM
- m5.large: $0.096/時間（約$69/月）、2 vCPU、8GiB RAM
- m5.xlarge: $0.192/時間（約$138/月）、4 vCPU、16GiB RAM

S3:
- スタンダード: $0.023/GB/月
- S3 IA: $0.0125/GB/月（+ 取得コスト）
- Glacier: $0.004/GB/月（+ 取得コスト）

RDS (MySQL):
- db.t3.small: 約$29/月、1vCPU、2GiB RAM
- db.t3.medium: 約$58/月、2vCPU、4GiB RAM
- db.m5.large: 約$138/月、2vCPU、8GiB RAM

Lambda:
- リクエスト: $0.20/100万リクエスト
- 実行時間: $0.0000166667/GB秒

DynamoDB:
- オンデマンド: $1.25/百万読み取り・書き込みユニット
- ストレージ: $0.25/GB/月`

// Estimate builds a pricing estimate block for the utterance. Both steps
// use the fast tier; any failure yields an error and the caller appends
// nothing to the reply.
func (e *Estimator) Estimate(ctx context.Context, utterance string) (string, error) {
	system := pricingBaselinePrompt
	if resources := e.extractResources(ctx, utterance); resources != "" {
		system += "\n\n検出されたリソース情報:\n" + resources
	}

	estimate, err := e.llm.Generate(ctx, llm.TierFast, llm.Request{
		System:   system,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: utterance}},
	})
	if err != nil {
		return "", fmt.Errorf("pricing estimation failed: %w", err)
	}

	return fmt.Sprintf("### AWS料金概算\n%s\n\n※これはあくまで概算です。実際の料金は使用状況や割引によって異なります。詳細な見積りはAWS料金計算ツールをご利用ください。", estimate), nil
}

// extractResources pulls structured resource hints from the utterance.
// Failures degrade to an empty hint block.
func (e *Estimator) extractResources(ctx context.Context, utterance string) string {
	raw, err := e.llm.Generate(ctx, llm.TierFast, llm.Request{
		System:   resourceExtractionPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: utterance}},
	})
	if err != nil {
		log.Debug().Err(err).Msg("resource extraction failed")
		return ""
	}

	var resources map[string]any
	if err := decodeModelJSON(raw, &resources); err != nil {
		log.Debug().Err(err).Msg("resource extraction parse failed")
		return ""
	}

	var sb strings.Builder
	for k, v := range resources {
		fmt.Fprintf(&sb, "- %s: %v\n", k, v)
	}
	return sb.String()
}
