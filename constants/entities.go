package constants

// KnownClients are companies that receive invoices. They never issue one, so a
// supplier value containing one of them is a recipient/issuer mix-up.
var KnownClients = []string{
	"BOARDRIDERS",
	"NA PALI",
	"QUIKSILVER",
	"KAUAI",
	"VANUATU",
	"EMERALD COAST",
	"PUKALANI",
	"HANALEI",
	"TARAWA",
	"SUNSHINE DIFFUSION",
}

// KnownSuppliers are issuers that commonly appear in invoice filenames.
var KnownSuppliers = []string{
	"TELEFONICA",
	"CEGEDIM",
	"BOUYGUES",
	"ORANGE",
	"SFR",
	"FREE",
	"OVH",
}
