package chart

import "fmt"

// Example is a copy-paste snippet showing how to fetch a render URL.
type Example struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// UsageExamples returns snippets for the given render URL, in display order.
func UsageExamples(renderURL string) []Example {
	return []Example{
		{
			Language: "JavaScript",
			Code: fmt.Sprintf(`// Using fetch API
const response = await fetch('%s');
const chartBlob = await response.blob();
const chartUrl = URL.createObjectURL(chartBlob);
// Display in img element
// <img src={chartUrl} />`, renderURL),
		},
		{
			Language: "Python",
			Code: fmt.Sprintf(`import requests
url = '%s'
resp = requests.get(url)
with open('chart.png', 'wb') as f:
    f.write(resp.content)`, renderURL),
		},
		{
			Language: "cURL",
			Code:     fmt.Sprintf(`curl '%s' --output chart.png`, renderURL),
		},
		{
			Language: "HTML",
			Code:     fmt.Sprintf(`<img src="%s" alt="Chart" />`, renderURL),
		},
		{
			Language: "Markdown",
			Code:     fmt.Sprintf(`![](%s)`, renderURL),
		},
	}
}
