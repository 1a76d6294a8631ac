package notify

const emailHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}}</title>
  <style>
    body {
      margin: 0;
      padding: 24px;
      background-color: #f3f4f6;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      color: #111827;
      line-height: 1.5;
    }

    .container {
      max-width: 640px;
      margin: 0 auto;
      background: #ffffff;
      border-radius: 8px;
      border: 1px solid #e5e7eb;
      overflow: hidden;
    }

    .header {
      padding: 20px 24px;
      background: linear-gradient(135deg, #7a5c12 0%, #37393b 100%);
      color: #ffffff;
      font-size: 18px;
      font-weight: 700;
    }

    .section {
      padding: 16px 24px;
    }

    .report {
      margin: 0;
      font-family: "Vazirmatn", Tahoma, monospace;
      font-size: 14px;
      white-space: pre-wrap;
      unicode-bidi: plaintext;
    }

    .footer {
      padding: 16px 24px;
      font-size: 12px;
      color: #9ca3af;
      text-align: center;
      background: #f9fafb;
      border-top: 1px solid #f3f4f6;
    }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">{{.Title}}</div>

    <div class="section">
      <pre class="report" dir="auto">{{.Report}}</pre>
    </div>

    <div class="footer">
      Generated by goldbot
    </div>
  </div>
</body>
</html>`
