package llm

import (
	"fmt"
	"strings"

	"github.com/tripchat/tripchat/internal/query"
)

const answerSystemPrompt = `You are a helpful data analyst assistant. You analyze Uber trip data and provide clear, concise answers to user questions.

Guidelines:
- Be conversational and friendly
- Use numbers and statistics from the data
- If no results found, explain that clearly
- Format numbers nicely (e.g., ₹1,234.56, 1,234 trips)
- Keep responses concise but informative
- If the data shows interesting patterns, mention them
`

// buildSQLSystemPrompt renders the live schema plus the context resolution
// rules the model needs for follow-up questions ("how many of them...").
func buildSQLSystemPrompt(schema query.SchemaSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a SQL query generator for analyzing Uber trip data.

Database Schema:
Table: %s
Total Rows: %s

Available Columns (use these for filtering):
`, schema.TableName, groupDigits(schema.TotalRows))

	for _, col := range schema.Columns {
		requirement := "(required)"
		if col.Nullable {
			requirement = "(nullable)"
		}
		fmt.Fprintf(&b, "  - %s: %s %s\n", col.Name, col.Type, requirement)
	}

	table := schema.TableName
	fmt.Fprintf(&b, `
Sample Values:
- Booking Status: %s
- Vehicle Types: %s
- Payment Methods: %s

CRITICAL: Dynamic Context Resolution from Conversation History
===============================================================
When generating SQL queries, you MUST:

1. **Review ALL conversation history** to understand context and references:
   - If user says "them", "those", "it", "that" - find what it refers to in previous messages
   - Look at previous user questions and assistant responses to understand what filters were applied
   - Extract any column filters (vehicle_type, booking_status, date ranges, locations, etc.) from previous queries

2. **Extract filters dynamically** from conversation history:
   - Scan previous messages for any column values mentioned (vehicle types, locations, statuses, dates, etc.)
   - If a previous query filtered by a column, and current question references "them/those/it", apply the same filter
   - Combine ALL relevant filters from conversation history with the current question's requirements
   - Work with ANY column from the schema above - don't limit to specific columns

3. **Apply context to current query**:
   - If previous message was about "Prime SUV trips" and current question asks "how many of them on weekends"
   - Generate: SELECT COUNT(*) FROM %s WHERE vehicle_type = 'Prime SUV' AND strftime(date, '%%w') IN ('0', '6')
   - The LLM should automatically know DuckDB date functions for weekend detection, date comparisons, etc.

4. **Work with ANY schema column**:
   - Don't limit yourself to specific columns - use any column from the schema above
   - Extract filters for pickup_location, drop_location, customer_id, payment_method, booking_value, ride_distance, etc. if mentioned in history
   - Apply date filters, value ranges, or any other column-based filters from context

5. **Combine multiple context filters**:
   - If conversation mentions multiple filters (vehicle_type AND date AND location), combine them all
   - Use AND to connect filters from context with filters from current question
   - Use OR when appropriate (e.g., pickup_location OR drop_location)

Example Context Resolution:
---------------------------
Previous: "How many Prime SUV trips got booked"
Current: "out of them how many are booked on weekends?"
→ Extract: vehicle_type = 'Prime SUV' from previous
→ Apply: Combine with weekend filter
→ SQL: SELECT COUNT(*) FROM %s WHERE vehicle_type = 'Prime SUV' AND strftime(date, '%%w') IN ('0', '6')

Previous: "Show me trips from Airport location"
Current: "how many of those were successful?"
→ Extract: pickup_location = 'Airport' OR drop_location = 'Airport' from previous
→ Apply: Combine with booking_status = 'Success'
→ SQL: SELECT COUNT(*) FROM %s WHERE (pickup_location = 'Airport' OR drop_location = 'Airport') AND booking_status = 'Success'

SQL Generation Rules:
---------------------
1. Generate ONLY valid SQL SELECT queries
2. Use the table name '%s'
3. For date comparisons, use the 'date' column (TIMESTAMP type)
4. Always use proper SQL syntax
5. Return ONLY the SQL query, no explanations or markdown
6. Use LIMIT if the query might return many rows (default: 100)
7. For aggregations, use appropriate functions (COUNT, SUM, AVG, etc.)
8. When combining multiple filters, use AND/OR appropriately

Example queries (without context):
- "How many successful rides?" → SELECT COUNT(*) FROM %s WHERE booking_status = 'Success'
- "Average booking value for Prime SUV" → SELECT AVG(booking_value) FROM %s WHERE vehicle_type = 'Prime SUV' AND booking_status = 'Success' AND booking_value IS NOT NULL
- "Top 5 pickup locations" → SELECT pickup_location, COUNT(*) as count FROM %s WHERE pickup_location IS NOT NULL GROUP BY pickup_location ORDER BY count DESC LIMIT 5
`,
		strings.Join(schema.SampleValues.BookingStatus, ", "),
		strings.Join(schema.SampleValues.VehicleTypes, ", "),
		strings.Join(schema.SampleValues.PaymentMethods, ", "),
		table, table, table, table, table, table, table)

	return b.String()
}

func sqlUserMessage(question string, hasHistory bool) string {
	msg := "Generate a SQL query for: " + question
	if hasHistory {
		msg += "\n\nIMPORTANT: Review the conversation history below to extract any filters or context that should be applied to this query. If the question references 'them', 'those', 'it', or 'that', find what it refers to in the previous messages and apply those filters."
	}
	return msg
}

func answerUserMessage(question, resultsText string) string {
	return fmt.Sprintf(`User Question: %s

Query Results:
%s

Please provide a clear, natural language answer to the user's question based on these results.`, question, resultsText)
}

// groupDigits renders n with thousands separators, e.g. 1234567 -> 1,234,567.
func groupDigits(n int64) string {
	digits := fmt.Sprintf("%d", n)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}
