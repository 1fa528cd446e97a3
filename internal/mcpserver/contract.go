package mcpserver

// DataDictionary describes the collection tables and the conventions
// the reconciliation applies, for LLM consumers reading through MCP.
const DataDictionary = `# tokodata Data Dictionary

The backing store is a hand-maintained sheet, so field names vary
between rows and collections. Lookups are case-insensitive and try the
candidate names below in order.

## Collections

### pelanggan (customers)
- ` + "`ID`" + ` – customer identifier
- ` + "`NAMA`" + ` – customer name
- Free-form extra columns are preserved as-is.

### barang (products)
- ` + "`KODE`" + ` / ` + "`KODE_BARANG`" + ` / ` + "`BARANG`" + ` – product code
- ` + "`HARGA`" + ` / ` + "`HARGA_SATUAN`" + ` / ` + "`PRICE`" + ` – unit price

### penjualan (order headers)
- ` + "`ID_NOTA`" + ` / ` + "`NOTA`" + ` / ` + "`NOMOR`" + ` / ` + "`NO`" + ` / ` + "`ID`" + ` – order number
- ` + "`TGL`" + ` / ` + "`TANGGAL`" + ` / ` + "`DATE`" + ` / ` + "`CREATED_AT`" + ` – order date
- ` + "`SUBTOTAL`" + ` / ` + "`SUB_TOTAL`" + ` / ` + "`TOTAL`" + ` – header amount

### item_penjualan (line-items)
- ` + "`NOTA`" + ` / ` + "`NOMOR`" + ` / ` + "`NOTA_PENJUALAN`" + ` / ` + "`ID_NOTA`" + ` – order number
- ` + "`KODE`" + ` / ` + "`KODE_BARANG`" + ` / ` + "`BARANG`" + ` – product code
- ` + "`QTY`" + ` / ` + "`JUMLAH`" + ` / ` + "`QUANTITY`" + ` – quantity
- ` + "`SUBTOTAL`" + ` / ` + "`SUB_TOTAL`" + ` / ` + "`TOTAL`" + ` – line amount
- ` + "`HARGA`" + ` / ` + "`HARGA_SATUAN`" + ` / ` + "`PRICE`" + ` – line unit price

## Conventions

1. **Order and product keys** are canonicalized before matching:
   uppercase, leading labels like ` + "`NOTA 42`" + ` or ` + "`NO. 42`" + ` stripped when
   whitespace-separated, and everything outside ` + "`0-9A-Z`" + ` removed. So
   ` + "`nota_42`" + `, ` + "`NOTA-42`" + `, and ` + "`NOTA42`" + ` name the same order.
2. **Dates** accept ISO forms and day-first ` + "`D/M/YY`" + ` or ` + "`D/M/YYYY`" + `;
   two-digit years resolve into the 2000s.
3. **Amounts** accept numbers or currency strings; ` + "`Rp 1.500`" + ` reads
   as 1500. Negative amounts are treated as 0.
4. **Revenue** prefers line-items: when an order has at least one
   line-item the header subtotal is ignored. Repeated
   (order, product) pairs are counted once.
5. **Reads never fail.** A fetch failure serves the last cached copy
   (status ` + "`stale`" + `) or an empty list (status ` + "`empty`" + `) with a warning.
`
