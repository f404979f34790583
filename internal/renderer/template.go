package renderer

// articleTemplate is the print layout for extracted articles. The styles
// target e-ink readers: no backgrounds, high contrast serif body text,
// and conservative page-break behavior.
const articleTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body {
    font-family: Georgia, "Times New Roman", serif;
    font-size: 12pt;
    line-height: 1.55;
    color: #000;
    background: #fff;
    margin: 0;
}
h1.article-title {
    font-size: 20pt;
    line-height: 1.25;
    margin: 0 0 0.3em 0;
}
.article-meta {
    font-size: 9.5pt;
    color: #333;
    border-bottom: 1px solid #000;
    padding-bottom: 0.8em;
    margin-bottom: 1.6em;
}
.article-meta span + span::before {
    content: " \00b7 ";
}
h2, h3, h4 {
    page-break-after: avoid;
    line-height: 1.3;
}
p {
    margin: 0 0 0.7em 0;
    text-align: justify;
    orphans: 3;
    widows: 3;
}
img {
    max-width: 100%;
    height: auto;
    page-break-inside: avoid;
}
pre, code {
    font-family: "Courier New", monospace;
    font-size: 9.5pt;
    white-space: pre-wrap;
    word-wrap: break-word;
}
pre {
    border: 1px solid #000;
    padding: 0.5em;
    page-break-inside: avoid;
}
table {
    border-collapse: collapse;
    width: 100%;
    page-break-inside: avoid;
}
th, td {
    border: 1px solid #000;
    padding: 0.25em 0.5em;
    font-size: 10pt;
}
blockquote {
    margin: 0.7em 1.5em;
    font-style: italic;
}
a {
    color: #000;
    text-decoration: underline;
}
</style>
</head>
<body>
<h1 class="article-title">{{.Title}}</h1>
<div class="article-meta">
{{- if .Author}}<span>{{.Author}}</span>{{end}}
{{- if .DatePublished}}<span>{{.DatePublished}}</span>{{end}}
<span>{{.URL}}</span>
</div>
<div class="article-content">
{{.Content}}
</div>
</body>
</html>
`
