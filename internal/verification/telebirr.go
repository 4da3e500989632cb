package verification

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"bookswap/internal/config"
	"bookswap/internal/model"
	"bookswap/pkg/money"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TelebirrReceipt 从收据页面抓取的原始字段
type TelebirrReceipt struct {
	PayerName            string
	PayerPhone           string
	CreditedPartyName    string
	CreditedPartyAccount string
	BankName             string
	TransactionStatus    string
	ReceiptNo            string
	PaymentDate          string
	SettledAmount        string
	ServiceFee           string
	ServiceFeeVAT        string
	TotalPaidAmount      string
}

// 标签同时匹配阿姆哈拉语与英文
var (
	labelPayerName     = regexp.MustCompile(`(?i)Payer\s*Name|የከፋይ\s*ስም`)
	labelPayerPhone    = regexp.MustCompile(`(?i)Payer\s*telebirr\s*no|የከፋይ\s*ቴሌብር`)
	labelCreditedName  = regexp.MustCompile(`(?i)Credited\s*Party\s*name|የገንዘብ\s*ተቀባይ\s*ስም`)
	labelCreditedNo    = regexp.MustCompile(`(?i)Credited\s*party\s*account\s*no|የገንዘብ\s*ተቀባይ\s*ቴሌብር`)
	labelBankAccount   = regexp.MustCompile(`(?i)Bank\s*account\s*number|የባንክ\s*አካውንት`)
	labelStatus        = regexp.MustCompile(`(?i)transaction\s*status|የክፍያው\s*ሁኔታ`)
	labelSettledAmount = regexp.MustCompile(`(?i)Settled\s*Amount|የተከፈለው\s*መጠን`)
	labelServiceFee    = regexp.MustCompile(`(?i)Service\s*fee|የአገልግሎት\s*ክፍያ`)
	labelServiceVAT    = regexp.MustCompile(`(?i)Service\s*fee\s*VAT|ተ\.እ\.ታ`)
	labelTotalPaid     = regexp.MustCompile(`(?i)Total\s*Paid\s*Amount|ጠቅላላ\s*የተከፈለ`)
)

// 单元格查找失败时对原始页面做正则兜底
var (
	rePayerName     = regexp.MustCompile(`(?is)(?:Payer\s+Name|የከፋይ\s+ስም)[^<]*</td>\s*<td[^>]*>\s*([A-Za-z][A-Za-z\s]*?)\s*<`)
	reSettledAmount = regexp.MustCompile(`(?is)(?:የተከፈለው\s+መጠን|Settled\s+Amount).*?(\d+(?:\.\d{2})?\s*Birr)`)
	reServiceFee    = regexp.MustCompile(`(?is)(?:የአገልግሎት\s+ክፍያ|Service\s+fee)(\s*VAT)?.*?(\d+(?:\.\d{2})?\s*Birr)`)
	reReceiptCell   = regexp.MustCompile(`(?i)receipttableTd2[^>]*>\s*([A-Z0-9]+)\s*<`)
	reReceiptToken  = regexp.MustCompile(`[A-Z0-9]{10,}`)
	rePaymentDate   = regexp.MustCompile(`(\d{2}-\d{2}-\d{4}\s+\d{2}:\d{2}:\d{2})`)
	reStatus        = regexp.MustCompile(`(?is)(?:transaction\s+status|የክፍያው\s+ሁኔታ)[^<]*</td>\s*<td[^>]*>\s*([A-Za-z]+)`)
	reBankAccount   = regexp.MustCompile(`(\d+)\s+(.*)`)
	reSpaces        = regexp.MustCompile(`\s+`)
)

// ParseTelebirrReceipt 解析收据 HTML。每个字段先按“标签单元格 -> 相邻单元格”查找，
// 找不到再用正则匹配原始文本。
func ParseTelebirrReceipt(page []byte) (*TelebirrReceipt, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	cells := collectCells(doc)
	text := string(page)

	r := &TelebirrReceipt{}
	r.PayerName = firstNonEmpty(
		cells.next(labelPayerName, nil),
		regexFind(rePayerName, text, 1),
	)
	r.SettledAmount = firstNonEmpty(
		cells.next(labelSettledAmount, nil),
		regexFind(reSettledAmount, text, 1),
	)
	r.ServiceFee = firstNonEmpty(
		cells.next(labelServiceFee, labelServiceVAT),
		serviceFeeWithoutVAT(text),
	)
	r.ReceiptNo = firstNonEmpty(
		regexFind(reReceiptCell, text, 1),
		firstTextMatching(doc, reReceiptToken),
	)
	r.PaymentDate = regexFind(rePaymentDate, text, 1)
	r.TransactionStatus = firstNonEmpty(
		cells.next(labelStatus, nil),
		regexFind(reStatus, text, 1),
	)
	r.ServiceFeeVAT = cells.next(labelServiceVAT, nil)
	r.TotalPaidAmount = cells.next(labelTotalPaid, nil)
	r.PayerPhone = cells.next(labelPayerPhone, nil)

	creditedName := cells.next(labelCreditedName, nil)
	creditedNo := cells.next(labelCreditedNo, nil)
	bankAccount := cells.next(labelBankAccount, nil)

	// 转入银行账户时，“收款方名称”一栏实际是银行名，账号栏为“账号 户名”
	if bankAccount != "" {
		r.BankName = creditedName
		if m := reBankAccount.FindStringSubmatch(bankAccount); m != nil {
			r.CreditedPartyAccount = m[1]
			r.CreditedPartyName = strings.TrimSpace(m[2])
		} else {
			r.CreditedPartyName = creditedName
		}
	} else {
		r.CreditedPartyName = creditedName
		r.CreditedPartyAccount = creditedNo
	}

	return r, nil
}

// Amount 到账金额，优先 Settled Amount
func (r *TelebirrReceipt) Amount() string {
	return firstNonEmpty(r.SettledAmount, r.TotalPaidAmount)
}

// Complete 收据号、付款人、金额、状态缺一不可
func (r *TelebirrReceipt) Complete() bool {
	return r.ReceiptNo != "" && r.PayerName != "" && r.Amount() != "" && r.TransactionStatus != ""
}

type cellList []*html.Node

func collectCells(doc *html.Node) cellList {
	var cells cellList
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Td {
			cells = append(cells, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return cells
}

// next 找到第一个文本匹配 label（且不匹配 exclude）的单元格，返回同一行下一个单元格的文本
func (cl cellList) next(label, exclude *regexp.Regexp) string {
	for _, td := range cl {
		t := nodeText(td)
		if !label.MatchString(t) {
			continue
		}
		if exclude != nil && exclude.MatchString(t) {
			continue
		}
		for s := td.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode && s.DataAtom == atom.Td {
				return nodeText(s)
			}
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(reSpaces.ReplaceAllString(b.String(), " "))
}

func firstTextMatching(doc *html.Node, re *regexp.Regexp) string {
	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode && re.MatchString(n.Data) {
			found = strings.TrimSpace(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

// serviceFeeWithoutVAT 跳过紧跟 VAT 的“服务费 VAT”行
func serviceFeeWithoutVAT(text string) string {
	for _, m := range reServiceFee.FindAllStringSubmatch(text, -1) {
		if m[1] == "" {
			return strings.TrimSpace(m[2])
		}
	}
	return ""
}

func regexFind(re *regexp.Regexp, text string, group int) string {
	m := re.FindStringSubmatch(text)
	if len(m) <= group {
		return ""
	}
	return strings.TrimSpace(m[group])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// TelebirrVerifier 通过公开收据页核验 telebirr 付款
type TelebirrVerifier struct {
	baseURL string
	fetcher *httpFetcher
	log     *logrus.Entry
}

func NewTelebirrVerifier(cfg config.ProviderConfig, userAgent string, log *logrus.Logger) *TelebirrVerifier {
	return &TelebirrVerifier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		fetcher: newHTTPFetcher(model.ProviderTelebirr, cfg.Timeout, userAgent, nil),
		log:     log.WithField("component", "TelebirrVerifier"),
	}
}

func (v *TelebirrVerifier) Provider() string {
	return model.ProviderTelebirr
}

func (v *TelebirrVerifier) Verify(ctx context.Context, req Request) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			v.log.WithField("reference", req.Reference).Errorf("解析收据时发生 panic: %v", r)
			out = Failed(v.Provider(), FailureBadResponse, "verification failed")
		}
	}()

	ref := strings.TrimSpace(req.Reference)
	log := v.log.WithField("reference", ref)

	body, status, err := v.fetcher.get(ctx, v.baseURL+"/"+url.PathEscape(ref))
	if err != nil {
		log.WithError(err).Warn("请求收据失败")
		return Failed(v.Provider(), FailureNetwork, networkReason(v.Provider(), err))
	}
	if status != http.StatusOK {
		log.WithField("status", status).Warn("收据不存在")
		return Failed(v.Provider(), FailureBadResponse, fmt.Sprintf("receipt not found (HTTP %d)", status))
	}

	receipt, err := ParseTelebirrReceipt(body)
	if err != nil {
		return Failed(v.Provider(), FailureBadResponse, "invalid receipt format")
	}
	if !receipt.Complete() {
		log.Warn("收据字段不完整")
		return Failed(v.Provider(), FailureIncomplete, "invalid or incomplete receipt data")
	}

	amount, ok := money.Extract(receipt.Amount())
	if !ok || !amount.IsPositive() {
		return Failed(v.Provider(), FailureIncomplete, "receipt amount could not be read")
	}

	log.WithFields(logrus.Fields{"payer": receipt.PayerName, "amount": amount.String()}).Info("核验成功")

	return Outcome{
		Success:              true,
		Provider:             v.Provider(),
		PayerName:            receipt.PayerName,
		PayerAccount:         receipt.PayerPhone,
		Amount:               money.Round2(amount),
		TransactionDate:      receipt.PaymentDate,
		ProviderReference:    receipt.ReceiptNo,
		Status:               receipt.TransactionStatus,
		CreditedPartyName:    receipt.CreditedPartyName,
		CreditedPartyAccount: receipt.CreditedPartyAccount,
		BankName:             receipt.BankName,
		ServiceFee:           receipt.ServiceFee,
		ServiceFeeVAT:        receipt.ServiceFeeVAT,
		TotalPaid:            receipt.TotalPaidAmount,
	}
}
