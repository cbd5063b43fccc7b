package config

// DefaultAnalysisContext is the fixed background block injected into every
// stage prompt. It describes the hypothetical state of Atlantis that all
// analysis is scoped to. Override with FACTGRAPH_CONTEXT_FILE.
const DefaultAnalysisContext = `
Country name: Atlantis
Geography: access to the Baltic Sea, several large navigable rivers, limited drinking water resources
Population: 28 million
Climate: temperate
Economic strengths: heavy industry, automotive, food processing, chemical, ICT; ambitions to play a significant role in renewables, critical raw material processing and supranational AI infrastructure (big data centers, AI gigafactories, quantum computers)
Armed forces: 150,000 professional soldiers
Digitalization of society: above the European average
Currency: other than the euro
Key bilateral relations: Germany, France, Finland, Ukraine, USA, Japan
Potential political and economic threats: instability in the EU; EU fragmenting into groups of "different speeds" in development pace and appetite for deeper integration; negative image campaigns by several state actors aimed at the government or society of Atlantis; disruptions in hydrocarbon fuel supplies from the USA, Scandinavia and the Persian Gulf (driven by potential domestic policy shifts in exporter countries or transport problems, e.g. Houthi attacks on LNG carriers in the Red Sea); exposure of the ICT sector to slowdown due to an embargo on advanced processors
Potential military threats: risk of armed attack by one of the neighbors; years of ongoing hybrid attacks by at least one neighbor, including against critical infrastructure and in cyberspace
Political and economic milestones: parliamentary democracy for 130 years; economic stagnation in 1930-1950 and 1980-1990; EU and NATO membership since 1997; 25th economy in the world by GDP
`
