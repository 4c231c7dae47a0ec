package notionsync

import (
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropOwner         = "Owner"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropAccount       = "Account"
	PropCard          = "Card"
	PropGoal          = "Goal"
	PropInstallment   = "Installment"
	PropPurchaseID    = "Purchase ID"
	PropUpdatedAt     = "Updated At"
)

func richText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: content},
			},
		},
	}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// TransactionToNotionProperties converts a ledger transaction to the
// properties of its Notion page. Optional references are only set when
// present so an update never writes empty relations.
func TransactionToNotionProperties(owner string, tx *domain.Transaction) notionapi.Properties {
	amount, _ := tx.Amount.Float64()

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: tx.Description},
				},
			},
		},
		PropTransactionID: richText(tx.ID),
		PropOwner:         richText(owner),
		PropDate:          dateProperty(tx.Date),
		PropAmount:        notionapi.NumberProperty{Number: amount},
		PropType:          notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Type)}},
		PropUpdatedAt:     dateProperty(tx.UpdatedAt),
	}

	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}}
	}
	if tx.AccountID != "" {
		props[PropAccount] = richText(tx.AccountID)
	}
	if tx.CardID != "" {
		props[PropCard] = richText(tx.CardID)
	}
	if tx.GoalID != "" {
		props[PropGoal] = richText(tx.GoalID)
	}
	if inst := tx.Installment; inst != nil {
		props[PropInstallment] = richText(fmt.Sprintf("%d/%d", inst.Number, inst.Total))
		props[PropPurchaseID] = richText(inst.PurchaseID)
	}

	return props
}

// plainText reads the first rich text fragment of a text or title property.
func plainText(page notionapi.Page, name string) string {
	switch prop := page.Properties[name].(type) {
	case *notionapi.RichTextProperty:
		if len(prop.RichText) > 0 {
			return prop.RichText[0].PlainText
		}
	case *notionapi.TitleProperty:
		if len(prop.Title) > 0 {
			return prop.Title[0].PlainText
		}
	}
	return ""
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	return plainText(page, PropTransactionID)
}

// extractUpdatedAt returns the Updated At date stored on the page.
func extractUpdatedAt(page notionapi.Page) (time.Time, bool) {
	prop, ok := page.Properties[PropUpdatedAt].(*notionapi.DateProperty)
	if !ok || prop.Date == nil || prop.Date.Start == nil {
		return time.Time{}, false
	}
	return time.Time(*prop.Date.Start), true
}
